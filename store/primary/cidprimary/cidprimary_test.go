package cidprimary

// Copyright 2023 rpcpool
// This file has been modified by github.com/gagliardetto
//
// Copyright 2020 IPLD Team and various authors and contributors
// See LICENSE for details.
import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/vmx/storethehash/store/types"
)

func mustCid(t *testing.T, data []byte) cid.Cid {
	t.Helper()
	digest, err := mh.Sum(data, mh.SHA2_256, -1)
	require.NoError(t, err)
	return cid.NewCidV1(cid.Raw, digest)
}

func TestCidPrimaryPutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.data")
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	var positions []struct {
		pos   types.Position
		c     cid.Cid
		value []byte
	}
	for i := 0; i < 10; i++ {
		c := mustCid(t, []byte(fmt.Sprintf("cid-%d", i)))
		value := []byte(fmt.Sprintf("value-%d", i))
		pos, err := p.Put(c.Bytes(), value)
		require.NoError(t, err)
		positions = append(positions, struct {
			pos   types.Position
			c     cid.Cid
			value []byte
		}{pos, c, value})
	}

	for _, entry := range positions {
		key, value, err := p.Get(entry.pos)
		require.NoError(t, err)
		require.Equal(t, entry.c.Bytes(), key)
		require.Equal(t, entry.value, value)
	}
}

func TestCidPrimaryIndexKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.data")
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	c := mustCid(t, []byte("some block contents"))
	pos, err := p.Put(c.Bytes(), []byte("some block contents"))
	require.NoError(t, err)

	indexKey, err := p.IndexKey(c.Bytes())
	require.NoError(t, err)
	decoded, err := mh.Decode(c.Hash())
	require.NoError(t, err)
	require.Equal(t, decoded.Digest, indexKey)

	fromPos, err := p.GetIndexKey(pos)
	require.NoError(t, err)
	require.Equal(t, indexKey, fromPos)
}

func TestCidPrimaryGetOutOfBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primary.data")
	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	_, _, err = p.Get(1000)
	require.Error(t, err)
}
