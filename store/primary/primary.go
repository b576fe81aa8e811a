// Package primary defines the capability the index engine needs from
// whatever is keeping the actual key/value pairs: somewhere to store a
// value and hand back a position, and somewhere to fetch it again given
// that position.
//
// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
package primary

import (
	"fmt"

	"github.com/vmx/storethehash/store/types"
)

// Storage is the contract the index requires of the key-value store it
// sits in front of. It never reaches into the primary's on-disk layout;
// the four operations here are everything the engine ever calls.
type Storage interface {
	// Get returns the key and value stored at pos.
	Get(pos types.Position) (key []byte, value []byte, err error)

	// Put stores a key/value pair and returns the position to record in
	// the index.
	Put(key []byte, value []byte) (pos types.Position, err error)

	// IndexKey derives the bytes the index should store prefixes of from
	// a key about to be stored. The default is identity; a primary whose
	// keys embed structure it doesn't want hashed on (e.g. a CID) may
	// extract a canonical sub-slice instead.
	IndexKey(key []byte) ([]byte, error)

	// GetIndexKey is a convenience equivalent to IndexKey(Get(pos).key).
	// The implementations in this module call Get, so the value is read
	// along with the key.
	GetIndexKey(pos types.Position) ([]byte, error)
}

// ErrOutOfBounds indicates pos does not address a stored record.
type ErrOutOfBounds struct {
	Pos types.Position
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("primary: position %d is out of bounds", e.Pos)
}

// ErrIo wraps an underlying filesystem error encountered by a primary
// implementation.
type ErrIo struct {
	Err error
}

func (e *ErrIo) Error() string {
	return fmt.Sprintf("primary: io error: %s", e.Err)
}

func (e *ErrIo) Unwrap() error {
	return e.Err
}

// ErrOther carries an opaque, primary-specific failure that doesn't fit
// the other two kinds (e.g. a malformed CID).
type ErrOther struct {
	Err error
}

func (e *ErrOther) Error() string {
	return fmt.Sprintf("primary: %s", e.Err)
}

func (e *ErrOther) Unwrap() error {
	return e.Err
}
