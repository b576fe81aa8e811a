package carprimary

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"
	car "github.com/ipld/go-car"
	"github.com/ipld/go-car/util"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/vmx/storethehash/store/types"
)

// buildCarFile writes a plain CARv1 file the same way a single block
// section is appended elsewhere in the corpus: a car.CarHeader followed
// by a stream of util.LdWrite(cid, data) sections. It returns the
// position of each section's start relative to the data payload (i.e.
// exactly what CarPrimary.Get expects), matching the offsets a
// CID-to-offset index would have recorded. For a CARv1 file the data
// payload starts at byte 0, so the positions include the header.
func buildCarFile(t *testing.T, n int) (string, []cid.Cid, []types.Position) {
	t.Helper()

	var cids []cid.Cid
	var datas [][]byte
	for i := 0; i < n; i++ {
		data := []byte(fmt.Sprintf("block contents %d", i))
		digest, err := mh.Sum(data, mh.SHA2_256, -1)
		require.NoError(t, err)
		cids = append(cids, cid.NewCidV1(cid.Raw, digest))
		datas = append(datas, data)
	}

	hdr := &car.CarHeader{Roots: []cid.Cid{cids[0]}, Version: 1}

	path := filepath.Join(t.TempDir(), "test.car")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, car.WriteHeader(hdr, f))
	dataOffset, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)

	var positions []types.Position
	for i, c := range cids {
		var section bytes.Buffer
		require.NoError(t, util.LdWrite(&section, c.Bytes(), datas[i]))
		positions = append(positions, types.Position(dataOffset))
		_, err := f.Write(section.Bytes())
		require.NoError(t, err)
		dataOffset += int64(section.Len())
	}

	return path, cids, positions
}

func TestCarPrimaryGet(t *testing.T) {
	path, cids, positions := buildCarFile(t, 5)

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	for i, pos := range positions {
		key, _, err := p.Get(pos)
		require.NoError(t, err)
		require.Equal(t, cids[i].Bytes(), key)
	}
}

func TestCarPrimaryIndexKey(t *testing.T) {
	path, cids, positions := buildCarFile(t, 1)

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	indexKey, err := p.IndexKey(cids[0].Bytes())
	require.NoError(t, err)
	decoded, err := mh.Decode(cids[0].Hash())
	require.NoError(t, err)
	require.Equal(t, decoded.Digest, indexKey)

	fromPos, err := p.GetIndexKey(positions[0])
	require.NoError(t, err)
	require.Equal(t, indexKey, fromPos)
}

func TestCarPrimaryPutIsReadOnly(t *testing.T) {
	path, _, _ := buildCarFile(t, 1)

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Put([]byte("key"), []byte("value"))
	require.ErrorIs(t, err, ErrReadOnly)
}
