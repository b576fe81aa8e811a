package index

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"encoding/binary"
	"fmt"
	"io"
)

// IndexVersion is written into every newly created index log. It is bumped
// whenever the on-disk block format changes in a way that isn't
// self-describing.
const IndexVersion uint8 = 2

// headerLen is the fixed size, in bytes, of the header body itself (not
// counting the 4-byte length prefix in front of it).
const headerLen = 2

// Header is persisted once, at the very start of the index log.
type Header struct {
	Version     uint8
	BucketsBits uint8
}

// WriteHeader writes the length-prefixed header to a freshly created log:
// a 4-byte little-endian N (always 2), followed by the N header bytes.
func WriteHeader(w io.Writer, h Header) error {
	var buf [4 + headerLen]byte
	binary.LittleEndian.PutUint32(buf[:4], headerLen)
	buf[4] = h.Version
	buf[5] = h.BucketsBits
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads the length-prefixed header from the start of an
// existing log and returns it along with the byte position immediately
// following it, where replay should resume.
func ReadHeader(r io.Reader) (Header, int64, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Header{}, 0, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n != headerLen {
		return Header{}, 0, fmt.Errorf("index: unsupported header length %d", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Header{}, 0, err
	}
	h := Header{Version: body[0], BucketsBits: body[1]}
	return h, int64(4 + n), nil
}
