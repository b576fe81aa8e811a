package index

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import "github.com/vmx/storethehash/store/types"

// BucketIndex identifies one of the 2^buckets_bits buckets.
type BucketIndex uint32

// Buckets maps a bucket index to the file offset, within the index log, of
// the record-list block the bucket currently owns. An offset of 0 means
// the bucket is empty. The table is purely in-memory: it is rebuilt by
// replaying the log on open, never persisted itself.
type Buckets []types.Position

// NewBuckets allocates a zeroed table sized for 2^bits buckets.
func NewBuckets(bits uint8) (Buckets, error) {
	if bits > 32 {
		return nil, types.ErrIndexTooLarge
	}
	return make(Buckets, 1<<bits), nil
}

// Put records the offset currently owned by a bucket.
func (b Buckets) Put(index BucketIndex, offset types.Position) error {
	if int(index) > len(b)-1 {
		return types.ErrOutOfBounds
	}
	b[int(index)] = offset
	return nil
}

// Get returns the offset owned by a bucket, or 0 if it is empty.
func (b Buckets) Get(index BucketIndex) (types.Position, error) {
	if int(index) > len(b)-1 {
		return 0, types.ErrOutOfBounds
	}
	return b[int(index)], nil
}

// Len returns the number of buckets in the table (2^bits).
func (b Buckets) Len() int {
	return len(b)
}
