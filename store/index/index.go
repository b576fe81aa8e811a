package index

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	logging "github.com/ipfs/go-log/v2"

	"github.com/vmx/storethehash/store/primary"
	"github.com/vmx/storethehash/store/types"
)

var log = logging.Logger("storethehash/index")

/* The index is a single append-only log of size-prefixed record-list
blocks:

```text
    |                    Repeated                   |
    |                                                |
    | 4 bytes | 4 bytes   | Variable size          | … |
    | size S  | bucket id | record-list body (S-4) | … |
```

preceded by a 4-byte length followed by a {version, buckets_bits} header.
*/

const (
	// indexBufferSize is the size of the buffered reader used during
	// replay. It matches a Linux pipe buffer.
	indexBufferSize = 16 * 4096

	// sizePrefixSize is the size, in bytes, of a block's leading length
	// field.
	sizePrefixSize = 4
)

// stripBucketPrefix removes the leading bytes of key that were used to
// compute its bucket id. Only whole bytes covered by bits are removed:
// e.g. bits=19 strips 2 bytes, bits=24 strips 3.
func stripBucketPrefix(key []byte, bits uint8) []byte {
	prefixLen := int(bits / 8)
	if len(key) < prefixLen {
		return nil
	}
	return key[prefixLen:]
}

// bucketIndexFor hashes a key down to its bucket: the first 4 bytes,
// interpreted little-endian, masked to the low `bits` bits.
func bucketIndexFor(key []byte, bits uint8) BucketIndex {
	prefix := binary.LittleEndian.Uint32(key[:4])
	mask := uint32(1)<<bits - 1
	return BucketIndex(prefix & mask)
}

// Index is the append-only secondary index: it maps keys to file offsets
// in a primary store, keeping only enough of each key on disk to
// distinguish it from its neighbors.
//
// An Index owns its log file and in-memory bucket table exclusively; it
// does no internal locking. Concurrent Put/Get calls on the same Index
// from multiple goroutines must be serialized by the caller.
type Index struct {
	file     *os.File
	buckets  Buckets
	sizeBits uint8
	primary  primary.Storage
	path     string
}

// Open opens the index log at path, creating it if it doesn't exist.
// sizeBits is the buckets_bits the index was (or will be) created with;
// opening an existing index created with a different value fails with
// ErrIndexWrongBitSize.
func Open(path string, prim primary.Storage, sizeBits uint8) (*Index, error) {
	buckets, err := NewBuckets(sizeBits)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		return create(path, prim, sizeBits, buckets)
	case statErr != nil:
		return nil, statErr
	default:
		return openExisting(path, prim, sizeBits, buckets)
	}
}

func create(path string, prim primary.Storage, sizeBits uint8, buckets Buckets) (*Index, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	if err := WriteHeader(file, Header{Version: IndexVersion, BucketsBits: sizeBits}); err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, err
	}
	return &Index{file: file, buckets: buckets, sizeBits: sizeBits, primary: prim, path: path}, nil
}

func openExisting(path string, prim primary.Storage, sizeBits uint8, buckets Buckets) (*Index, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	header, headerEnd, err := ReadHeader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if header.BucketsBits != sizeBits {
		file.Close()
		return nil, types.ErrIndexWrongBitSize{header.BucketsBits, sizeBits}
	}

	if _, err := file.Seek(headerEnd, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	logEnd, err := replay(bufio.NewReaderSize(file, indexBufferSize), headerEnd, buckets)
	if err != nil {
		file.Close()
		return nil, err
	}
	if err := file.Truncate(logEnd); err != nil {
		file.Close()
		return nil, err
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, err
	}

	return &Index{file: file, buckets: buckets, sizeBits: sizeBits, primary: prim, path: path}, nil
}

// replay walks the log from pos, populating buckets with the start
// position of each block it finds, and returns the position up to which
// the log is known-good. A partial trailing block is logged and its
// presence does not fail the open; everything after the last complete
// block is dropped.
func replay(r io.Reader, pos int64, buckets Buckets) (int64, error) {
	it := NewLogIterator(r, pos)
	for {
		block, startPos, err := it.Next()
		if err == io.EOF {
			return startPos, nil
		}
		var trunc ErrUnexpectedTruncation
		if errors.As(err, &trunc) {
			log.Warnw("Unexpected EOF reading tail of index; truncating", "pos", startPos)
			return startPos, nil
		}
		if err != nil {
			return 0, err
		}
		bucketID := binary.LittleEndian.Uint32(block[:BucketPrefixSize])
		if err := buckets.Put(BucketIndex(bucketID), types.Position(startPos)); err != nil {
			return 0, err
		}
	}
}

// Put stores the file offset pos under key. key must be at least 4
// bytes. Only a distinguishing prefix of key is written to the log; the
// full key is assumed to already live in primary storage at pos.
func (idx *Index) Put(key []byte, pos types.Position) error {
	if len(key) < 4 {
		return types.ErrKeyTooShort
	}

	bucketID := bucketIndexFor(key, idx.sizeBits)
	indexKey := stripBucketPrefix(key, idx.sizeBits)

	curOffset, err := idx.buckets.Get(bucketID)
	if err != nil {
		return err
	}

	var newData []byte
	if curOffset == 0 {
		newData = EncodeKeyPosition(KeyPositionPair{Key: indexKey[:1], FileOffset: pos})
	} else {
		recordList, err := idx.readRecordList(curOffset)
		if err != nil {
			return err
		}

		keyPos, prevRecord, hasPrev := recordList.FindKeyPosition(indexKey)

		if hasPrev && bytes.HasPrefix(indexKey, prevRecord.Key) {
			data, noop, err := idx.lengthenPrev(recordList, indexKey, pos, prevRecord, keyPos)
			if err != nil {
				return err
			}
			if noop {
				return nil
			}
			newData = data
		} else {
			p := 0
			if hasPrev {
				p = firstNonCommonByte(indexKey, prevRecord.Key)
			}
			n := 0
			if keyPos < recordList.Len() {
				nextRecord := recordList.ReadRecord(keyPos)
				n = firstNonCommonByte(indexKey, nextRecord.Key)
			}
			trim := min(max(p, n), len(indexKey))
			newKey := indexKey[:trim+1]
			newData = recordList.PutKeys([]KeyPositionPair{{Key: newKey, FileOffset: pos}}, keyPos, keyPos)
		}
	}

	startPos, err := idx.appendBlock(bucketID, newData)
	if err != nil {
		return err
	}
	return idx.buckets.Put(bucketID, startPos)
}

// lengthenPrev implements Branch A of put: the previous record's stored
// prefix is itself a prefix of the new key, so it must be lengthened
// enough to stay distinguishable from the new key.
func (idx *Index) lengthenPrev(recordList RecordList, indexKey []byte, pos types.Position, prevRecord Record, keyPos int) (data []byte, noop bool, err error) {
	fullPrevKey, err := idx.primary.GetIndexKey(prevRecord.FileOffset)
	if err != nil {
		return nil, false, err
	}
	prevKey := stripBucketPrefix(fullPrevKey, idx.sizeBits)

	trimPos := firstNonCommonByte(indexKey, prevKey)
	if trimPos >= len(indexKey) {
		// The new key is already indistinguishable from the stored one
		// under trimming; nothing to write.
		return nil, true, nil
	}

	newKey := indexKey[:trimPos+1]
	lengthenedPrevKey := prevKey[:trimPos+1]

	var keys []KeyPositionPair
	if bytes.Compare(newKey, lengthenedPrevKey) < 0 {
		keys = []KeyPositionPair{
			{Key: newKey, FileOffset: pos},
			{Key: lengthenedPrevKey, FileOffset: prevRecord.FileOffset},
		}
	} else {
		keys = []KeyPositionPair{
			{Key: lengthenedPrevKey, FileOffset: prevRecord.FileOffset},
			{Key: newKey, FileOffset: pos},
		}
	}
	return recordList.PutKeys(keys, prevRecord.Pos, keyPos), false, nil
}

// Get returns the file offset stored for key, or false if the bucket has
// no record compatible with it. A true result is not proof that key was
// ever inserted: the index stores only distinguishing prefixes, so
// callers must confirm the full key against primary storage.
func (idx *Index) Get(key []byte) (types.Position, bool, error) {
	if len(key) < 4 {
		return 0, false, types.ErrKeyTooShort
	}

	bucketID := bucketIndexFor(key, idx.sizeBits)
	indexKey := stripBucketPrefix(key, idx.sizeBits)

	offset, err := idx.buckets.Get(bucketID)
	if err != nil {
		return 0, false, err
	}
	if offset == 0 {
		return 0, false, nil
	}

	recordList, err := idx.readRecordList(offset)
	if err != nil {
		return 0, false, err
	}
	pos, found := recordList.Get(indexKey)
	return pos, found, nil
}

// readRecordList reads the block at offset and returns the record-list
// view over its body (bucket prefix excluded).
func (idx *Index) readRecordList(offset types.Position) (RecordList, error) {
	if _, err := idx.file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	var sizeBuf [sizePrefixSize]byte
	if _, err := io.ReadFull(idx.file, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	block := make([]byte, size)
	if _, err := io.ReadFull(idx.file, block); err != nil {
		return nil, err
	}
	return NewRecordList(block), nil
}

// appendBlock writes one size-prefixed, bucket-tagged block to the end of
// the log and returns the position of its size prefix.
func (idx *Index) appendBlock(bucket BucketIndex, body []byte) (types.Position, error) {
	startPos, err := idx.file.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	var header [sizePrefixSize + BucketPrefixSize]byte
	binary.LittleEndian.PutUint32(header[:sizePrefixSize], uint32(BucketPrefixSize+len(body)))
	binary.LittleEndian.PutUint32(header[sizePrefixSize:], uint32(bucket))

	if _, err := idx.file.Write(header[:]); err != nil {
		return 0, err
	}
	if _, err := idx.file.Write(body); err != nil {
		return 0, err
	}
	return types.Position(startPos), nil
}

// Close releases the log file handle. The bucket table is discarded; it
// is rebuilt from the log the next time the index is opened.
func (idx *Index) Close() error {
	return idx.file.Close()
}

// Path returns the filesystem path the index was opened from.
func (idx *Index) Path() string {
	return idx.path
}

// BucketsBits returns the buckets_bits the index was opened with.
func (idx *Index) BucketsBits() uint8 {
	return idx.sizeBits
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// firstNonCommonByte returns the position of the first byte at which aa
// and bb differ. If one is a prefix of the other, it returns the length
// of the shorter slice.
func firstNonCommonByte(aa, bb []byte) int {
	n := min(len(aa), len(bb))
	i := 0
	for ; i < n; i++ {
		if aa[i] != bb[i] {
			break
		}
	}
	return i
}
