// Package inmemory is the simplest primary.Storage: key/value pairs kept
// as a plain in-process slice, positions being indices into it. Useful
// for tests and for embedding the index in a process that already keeps
// its values in memory.
//
// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
package inmemory

import (
	"github.com/vmx/storethehash/store/primary"
	"github.com/vmx/storethehash/store/types"
)

type entry struct {
	key   []byte
	value []byte
}

// InMemory is a primary.Storage backed by an append-only slice of
// key/value pairs.
type InMemory []entry

// New returns an empty in-memory primary.
func New() *InMemory {
	im := InMemory(nil)
	return &im
}

// Get returns the key and value stored at pos.
func (im *InMemory) Get(pos types.Position) ([]byte, []byte, error) {
	if int(pos) >= len(*im) {
		return nil, nil, &primary.ErrOutOfBounds{Pos: pos}
	}
	e := (*im)[pos]
	return e.key, e.value, nil
}

// Put appends key and value and returns their position.
func (im *InMemory) Put(key []byte, value []byte) (types.Position, error) {
	pos := types.Position(len(*im))
	*im = append(*im, entry{key: key, value: value})
	return pos, nil
}

// IndexKey returns key unchanged: plain keys need no transformation to be
// usable by the index.
func (im *InMemory) IndexKey(key []byte) ([]byte, error) {
	return key, nil
}

// GetIndexKey fetches the key stored at pos and derives its index key.
func (im *InMemory) GetIndexKey(pos types.Position) ([]byte, error) {
	key, _, err := im.Get(pos)
	if err != nil {
		return nil, err
	}
	return im.IndexKey(key)
}

var _ primary.Storage = &InMemory{}
