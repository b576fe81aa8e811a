// Package carprimary is a read-only primary.Storage over a CAR file's
// data payload: positions are byte offsets into the CAR's section
// stream, exactly as a reader would get them from an external
// CID-to-offset index. It never writes; Put only exists to satisfy
// primary.Storage and always fails, since appending CAR sections in
// place would require rewriting the CAR's own header/commitments.
//
// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
package carprimary

import (
	"bufio"
	"errors"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-car/util"
	carv2 "github.com/ipld/go-car/v2"
	mh "github.com/multiformats/go-multihash"

	"github.com/vmx/storethehash/store/primary"
	"github.com/vmx/storethehash/store/types"
)

// ErrReadOnly is returned by Put: a CAR-backed primary only supports
// reading sections that already exist in the archive.
var ErrReadOnly = errors.New("carprimary: primary is read-only")

// dataReader is what carv2.Reader.DataReader() returns: a seekable,
// positioned view over the CAR's section stream.
type dataReader interface {
	io.Reader
	io.Seeker
}

// CarPrimary reads (CID, data) sections out of a CAR file, seeking to a
// caller-supplied byte offset for each lookup.
type CarPrimary struct {
	reader *carv2.Reader
	data   dataReader
}

// Open opens the CAR file at path for section reads.
func Open(path string) (*CarPrimary, error) {
	reader, err := carv2.OpenReader(path)
	if err != nil {
		return nil, err
	}
	dr, err := reader.DataReader()
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &CarPrimary{reader: reader, data: dr}, nil
}

// Get seeks to pos within the CAR's data payload and reads the CID and
// data section stored there.
func (p *CarPrimary) Get(pos types.Position) ([]byte, []byte, error) {
	if _, err := p.data.Seek(int64(pos), io.SeekStart); err != nil {
		return nil, nil, &primary.ErrIo{Err: err}
	}
	br := bufio.NewReader(p.data)
	c, data, err := util.ReadNode(br)
	if err != nil {
		return nil, nil, &primary.ErrIo{Err: err}
	}
	return c.Bytes(), data, nil
}

// Put always fails: see package doc.
func (p *CarPrimary) Put(key []byte, value []byte) (types.Position, error) {
	return 0, ErrReadOnly
}

// IndexKey extracts the multihash digest from the CID's raw bytes, the
// same way cidprimary does, since CAR sections are also CID-keyed.
func (p *CarPrimary) IndexKey(key []byte) ([]byte, error) {
	return cidDigest(key)
}

// GetIndexKey fetches the CID stored at pos and derives its index key.
func (p *CarPrimary) GetIndexKey(pos types.Position) ([]byte, error) {
	key, _, err := p.Get(pos)
	if err != nil {
		return nil, err
	}
	return p.IndexKey(key)
}

// Close closes the underlying CAR file.
func (p *CarPrimary) Close() error {
	return p.reader.Close()
}

// cidDigest parses key as a CID and returns its multihash digest.
func cidDigest(key []byte) ([]byte, error) {
	c, err := cid.Cast(key)
	if err != nil {
		return nil, &primary.ErrOther{Err: err}
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return nil, &primary.ErrOther{Err: err}
	}
	return decoded.Digest, nil
}

var _ primary.Storage = &CarPrimary{}
