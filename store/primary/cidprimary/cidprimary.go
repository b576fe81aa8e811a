// Package cidprimary is a primary.Storage whose keys are CIDs. Its
// on-disk layout mirrors a CAR file's block section without the
// surrounding CAR header: a stream of `varint | cid-bytes | data`
// entries, the varint giving the combined byte length of the CID and the
// data that follows it.
//
// Unlike a generic key, a CID's bytes are mostly self-describing
// (version, codec, multihash) and not a good bucket-hash input on their
// own; IndexKey extracts the multihash digest instead, which is what
// actually carries the hash's entropy.
//
// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
package cidprimary

import (
	"io"
	"os"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"

	"github.com/vmx/storethehash/store/primary"
	"github.com/vmx/storethehash/store/types"
)

// CidPrimary is a primary.Storage backed by a single append-only file of
// varint-length-prefixed CID+data entries.
type CidPrimary struct {
	file *os.File
}

// Open opens (creating if necessary) the primary file at path.
func Open(path string) (*CidPrimary, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &CidPrimary{file: file}, nil
}

// Get reads the CID and data stored at pos and returns the CID's raw
// bytes as the key.
func (p *CidPrimary) Get(pos types.Position) ([]byte, []byte, error) {
	fileSize, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, nil, &primary.ErrIo{Err: err}
	}
	if int64(pos) > fileSize {
		return nil, nil, &primary.ErrOutOfBounds{Pos: pos}
	}

	if _, err := p.file.Seek(int64(pos), io.SeekStart); err != nil {
		return nil, nil, &primary.ErrIo{Err: err}
	}
	block, err := readBlock(p.file)
	if err != nil {
		return nil, nil, &primary.ErrIo{Err: err}
	}
	return splitCidData(block)
}

// Put appends key (a CID's raw bytes) and value and returns the position
// the entry was written at.
func (p *CidPrimary) Put(key []byte, value []byte) (types.Position, error) {
	pos, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, &primary.ErrIo{Err: err}
	}

	size := uint64(len(key) + len(value))
	if _, err := p.file.Write(varint.ToUvarint(size)); err != nil {
		return 0, &primary.ErrIo{Err: err}
	}
	if _, err := p.file.Write(key); err != nil {
		return 0, &primary.ErrIo{Err: err}
	}
	if _, err := p.file.Write(value); err != nil {
		return 0, &primary.ErrIo{Err: err}
	}
	return types.Position(pos), nil
}

// IndexKey extracts the multihash digest from a CID's raw bytes: that
// digest, not the CID's version/codec prefix, is what should be hashed
// into a bucket.
func (p *CidPrimary) IndexKey(key []byte) ([]byte, error) {
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

// GetIndexKey fetches the CID stored at pos and derives its index key.
func (p *CidPrimary) GetIndexKey(pos types.Position) ([]byte, error) {
	key, _, err := p.Get(pos)
	if err != nil {
		return nil, err
	}
	return p.IndexKey(key)
}

// Close closes the underlying file.
func (p *CidPrimary) Close() error {
	return p.file.Close()
}

// readBlock reads one varint-length-prefixed entry starting at the
// reader's current position.
func readBlock(r io.Reader) ([]byte, error) {
	size, err := varint.ReadUvarint(toByteReader(r))
	if err != nil {
		return nil, err
	}
	block := make([]byte, size)
	if _, err := io.ReadFull(r, block); err != nil {
		return nil, err
	}
	return block, nil
}

// splitCidData separates a block into the CID's raw bytes and the data
// that follows it, using the CID's own self-describing length.
func splitCidData(block []byte) ([]byte, []byte, error) {
	cidLen, _, err := cid.CidFromBytes(block)
	if err != nil {
		return nil, nil, err
	}
	return block[:cidLen], block[cidLen:], nil
}

// toByteReader adapts r to io.ByteReader, as required by varint.ReadUvarint.
func toByteReader(r io.Reader) io.ByteReader {
	if br, ok := r.(io.ByteReader); ok {
		return br
	}
	return &singleByteReader{r: r}
}

type singleByteReader struct {
	r   io.Reader
	buf [1]byte
}

func (s *singleByteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(s.r, s.buf[:]); err != nil {
		return 0, err
	}
	return s.buf[0], nil
}

var _ primary.Storage = &CidPrimary{}
