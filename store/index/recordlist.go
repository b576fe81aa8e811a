package index

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/vmx/storethehash/store/types"
)

// BucketPrefixSize is how many bytes of bucket-id framing precede a
// record-list body inside an on-disk block.
const BucketPrefixSize int = 4

// FileOffsetBytes is the byte size of a record's file offset field.
const FileOffsetBytes int = types.OffBytesLen

// KeySizeBytes is the one-byte key-length prefix in front of each key.
const KeySizeBytes int = 1

// KeyPositionPair is a stored prefix together with the primary-storage
// position it points at.
type KeyPositionPair struct {
	Key []byte
	// FileOffset is the position in primary storage the key maps to.
	FileOffset types.Position
}

// Record is a KeyPositionPair plus the byte position of the record
// within its RecordList.
type Record struct {
	// Pos is the position, in bytes, of this record within the record list.
	Pos int
	KeyPositionPair
}

// RecordList is a parsed view over the body of a record-list block: a
// byte-packed, ascending sequence of records. It borrows its underlying
// bytes rather than copying them; Record.Key slices are views into the
// caller-owned buffer.
//
// Encoding of a single record:
//
//	| 8 bytes      | 1 byte          | variable, < 256 bytes |
//	| file_offset  | len(key_prefix) | key_prefix            |
type RecordList []byte

// NewRecordList parses a record list out of a full on-disk block (bucket
// prefix included), skipping the leading BucketPrefixSize bytes.
func NewRecordList(block []byte) RecordList {
	return RecordList(block[BucketPrefixSize:])
}

// NewRecordListRaw wraps a byte slice that is already just the
// record-list body, with no bucket prefix.
func NewRecordListRaw(body []byte) RecordList {
	return RecordList(body)
}

// FindKeyPosition scans the list for where key would be inserted: the
// first record whose stored key sorts after key. It returns that byte
// position together with the record immediately preceding it, if any.
func (rl RecordList) FindKeyPosition(key []byte) (pos int, prev Record, hasPrev bool) {
	rli := &RecordListIter{rl, 0}
	for !rli.Done() {
		record := rli.Next()
		if bytes.Compare(record.Key, key) == 1 {
			pos = record.Pos
			return
		}
		hasPrev = true
		prev = record
	}
	pos = len(rl)
	return
}

// PutKeys returns a new record-list body equal to rl with the byte range
// [start, end) replaced by the serialized keys. An empty range is a pure
// insertion; a non-empty range simultaneously replaces whatever record(s)
// occupied it — used when the previous record's stored prefix must be
// lengthened in the same step a new record is inserted.
func (rl RecordList) PutKeys(keys []KeyPositionPair, start int, end int) []byte {
	out := make([]byte, 0,
		len(rl)-(end-start)+
			// Keys vary in length; 32 bytes is a generous guess to avoid
			// reallocating for typical hash-sized prefixes.
			len(keys)*(KeySizeBytes+FileOffsetBytes+32))
	out = append(out, rl[:start]...)
	for i := range keys {
		out = AddKeyPosition(out, keys[i])
	}
	return append(out, rl[end:]...)
}

// Get returns the file offset of the last record whose stored prefix is a
// prefix of key. Several stored prefixes can be compatible with key;
// because the list is sorted ascending, the longest compatible one
// appears last, so iteration keeps overwriting the match until a record
// sorts strictly past key.
func (rl RecordList) Get(key []byte) (types.Position, bool) {
	rli := &RecordListIter{rl, 0}
	var pos types.Position
	var matched bool
	for !rli.Done() {
		record := rli.Next()
		if bytes.HasPrefix(key, record.Key) {
			matched = true
			pos = record.FileOffset
		} else if bytes.Compare(record.Key, key) == 1 {
			break
		}
	}
	return pos, matched
}

// GetRecord returns the full record with the longest stored prefix
// matching key, or nil if none matches.
func (rl RecordList) GetRecord(key []byte) *Record {
	var r *Record
	rli := &RecordListIter{rl, 0}
	for !rli.Done() {
		record := rli.Next()
		if bytes.HasPrefix(key, record.Key) {
			r = &record
		} else if bytes.Compare(record.Key, key) == 1 {
			break
		}
	}
	return r
}

// ReadRecord decodes one record whose encoding starts at pos.
func (rl RecordList) ReadRecord(pos int) Record {
	keyLenOffset := pos + FileOffsetBytes
	size := rl[keyLenOffset]
	keyStart := keyLenOffset + KeySizeBytes
	return Record{
		Pos: pos,
		KeyPositionPair: KeyPositionPair{
			Key:        rl[keyStart : keyStart+int(size)],
			FileOffset: types.Position(binary.LittleEndian.Uint64(rl[pos:])),
		},
	}
}

// Len returns the byte length of the record-list body.
func (rl RecordList) Len() int {
	return len(rl)
}

// Empty reports whether the record list has no records.
func (rl RecordList) Empty() bool {
	return len(rl) == 0
}

// Iter returns an iterator over the records, in stored order.
func (rl RecordList) Iter() *RecordListIter {
	return &RecordListIter{rl, 0}
}

// RecordListIter walks a RecordList front to back.
type RecordListIter struct {
	records RecordList
	pos     int
}

// Done reports whether there are no more records to read.
func (rli *RecordListIter) Done() bool {
	return rli.pos >= len(rli.records)
}

// Next decodes and returns the next record, advancing the iterator.
func (rli *RecordListIter) Next() Record {
	record := rli.records.ReadRecord(rli.pos)
	rli.pos += FileOffsetBytes + KeySizeBytes + len(record.Key)
	return record
}

// NextPos returns the byte position immediately following r within its
// record list.
func (r *Record) NextPos() int {
	return r.Pos + FileOffsetBytes + KeySizeBytes + len(r.Key)
}

// AddKeyPosition appends one encoded record to data.
func AddKeyPosition(data []byte, kp KeyPositionPair) []byte {
	size := byte(len(kp.Key))
	var offsetBytes [8]byte
	binary.LittleEndian.PutUint64(offsetBytes[:], uint64(kp.FileOffset))
	data = append(data, offsetBytes[:]...)
	data = append(data, size)
	return append(data, kp.Key...)
}

// EncodeKeyPosition encodes a single record into a fresh buffer.
func EncodeKeyPosition(kp KeyPositionPair) []byte {
	buf := make([]byte, 0, FileOffsetBytes+KeySizeBytes+len(kp.Key))
	return AddKeyPosition(buf, kp)
}

// ReadBucketPrefix reads the 4-byte little-endian bucket id that precedes
// a record-list body in an on-disk block.
func ReadBucketPrefix(r io.Reader) (BucketIndex, error) {
	var buf [BucketPrefixSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return BucketIndex(binary.LittleEndian.Uint32(buf[:])), nil
}
