package types

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import "fmt"

type errorType string

func (e errorType) Error() string {
	return string(e)
}

// ErrOutOfBounds indicates the bucket index was not less than the number of buckets.
const ErrOutOfBounds = errorType("buckets out of bound error")

// ErrIndexTooLarge indicates the maximum supported bucket size is 32-bits.
const ErrIndexTooLarge = errorType("index size cannot be more than 32-bits")

// ErrKeyTooShort indicates a key shorter than the minimum the bucket hash needs.
const ErrKeyTooShort = errorType("key must be at least 4 bytes long")

// ErrIndexCorrupt is reserved for index corruption that cannot be recovered
// by truncating the tail. Current replay policy never returns it: a
// mid-block EOF at open is treated as a recoverable truncated tail, not
// corruption.
const ErrIndexCorrupt = errorType("index corrupt")

// ErrIndexWrongBitSize indicates an on-disk index was built with a
// different buckets_bits than the one requested at open.
type ErrIndexWrongBitSize [2]byte

func (e ErrIndexWrongBitSize) Error() string {
	return fmt.Sprintf("index bit size for buckets is %d, expected %d", e[0], e[1])
}
