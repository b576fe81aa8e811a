package index

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"encoding/binary"
	"io"

	"github.com/vmx/storethehash/store/types"
)

// LogIterator reads the index log as a stream of size-prefixed blocks,
// starting from a given byte position. The index uses it to replay a log
// on open; it is exported so other code can walk a log's blocks directly.
type LogIterator struct {
	r   io.Reader
	pos int64
}

// NewLogIterator returns an iterator that reads blocks starting at pos.
// The caller is responsible for positioning r at pos beforehand (e.g. via
// a *os.File seek); r is read sequentially from there on.
func NewLogIterator(r io.Reader, pos int64) *LogIterator {
	return &LogIterator{r: r, pos: pos}
}

// Next reads one size-prefixed block. It returns the block's bytes (the
// bucket id plus record-list body, i.e. everything after the 4-byte size
// prefix) and the position of the size prefix itself.
//
// io.EOF is returned when the stream ends cleanly on a block boundary.
// ErrUnexpectedTruncation is returned when EOF lands in the middle of a
// block: the size prefix was read but the promised bytes weren't there,
// or only part of the size prefix itself was present. Both are the
// iterator's only recoverable-truncation signals; any other error from
// the underlying reader is returned unchanged.
func (it *LogIterator) Next() ([]byte, int64, error) {
	startPos := it.pos
	var sizeBuf [4]byte
	n, err := io.ReadFull(it.r, sizeBuf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, startPos, io.EOF
		}
		return nil, startPos, ErrUnexpectedTruncation{Err: err}
	}
	it.pos += 4
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	block := make([]byte, size)
	if _, err := io.ReadFull(it.r, block); err != nil {
		return nil, startPos, ErrUnexpectedTruncation{Err: err}
	}
	it.pos += int64(size)
	return block, startPos, nil
}

// ErrUnexpectedTruncation signals that the log ended partway through a
// block: either inside the size prefix itself, or before all the bytes a
// size prefix promised were written.
// This is the expected shape of a crash that happened mid-append; callers
// replaying the log treat it as "stop here", not as a fatal error.
type ErrUnexpectedTruncation struct {
	Err error
}

func (e ErrUnexpectedTruncation) Error() string {
	return "index: unexpected EOF reading truncated tail block"
}

func (e ErrUnexpectedTruncation) Unwrap() error {
	return e.Err
}
