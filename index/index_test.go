package index

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dlog"
	"github.com/dhstore/dhstore/hash"
)

func newTestDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "dhstore-index-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func TestInsertIsIdempotent(t *testing.T) {
	dir := newTestDir(t)
	ix, err := Open(dir, hash.Hash{}, dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)

	data := codec.ListData(codec.NewList(codec.Integer(1), codec.Integer(2)))
	d1, err := ix.Insert(data)
	require.NoError(t, err)
	d2, err := ix.Insert(data)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, ix.Count())
}

func TestBootstrapRecoversInsertedObjects(t *testing.T) {
	dir := newTestDir(t)
	log := dlog.NewStderr(dlog.Warn)

	ix, err := Open(dir, hash.Hash{}, log)
	require.NoError(t, err)
	data := codec.DictData(codec.NewDict(map[string]codec.Property{
		"name": codec.String("leaf"),
	}))
	digest, err := ix.Insert(data)
	require.NoError(t, err)

	ix2, err := Open(dir, digest, log)
	require.NoError(t, err)
	obj, ok := ix2.Get(digest)
	require.True(t, ok)
	assert.Equal(t, digest, obj.Digest)
}

func TestBacklinksRecordedOnInsert(t *testing.T) {
	dir := newTestDir(t)
	ix, err := Open(dir, hash.Hash{}, dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)

	leaf, err := ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"name": codec.String("leaf"),
	})))
	require.NoError(t, err)

	parent, err := ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"child": codec.Reference(leaf),
	})))
	require.NoError(t, err)

	assert.Contains(t, ix.backlinks[leaf], backlink{Source: parent, Key: "child"})
}

func TestPermanodeSingleRetainsAscendingMax(t *testing.T) {
	dir := newTestDir(t)
	ix, err := Open(dir, hash.Hash{}, dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)

	random := make([]byte, hash.ByteLen)
	for i := range random {
		random[i] = byte(i)
	}
	pnDigest, err := ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"dhstore_kind": codec.String(kindPermanode),
		"random":       codec.String(string(random)),
		"sort":         codec.String("+seq"),
	})))
	require.NoError(t, err)

	target1, err := ix.Insert(codec.ListData(codec.NewList(codec.String("v1"))))
	require.NoError(t, err)
	target2, err := ix.Insert(codec.ListData(codec.NewList(codec.String("v2"))))
	require.NoError(t, err)

	_, err = ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"dhstore_kind": codec.String(kindClaim),
		"node":         codec.Reference(pnDigest),
		"value":        codec.Reference(target1),
		"seq":          codec.Integer(1),
	})))
	require.NoError(t, err)
	_, err = ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"dhstore_kind": codec.String(kindClaim),
		"node":         codec.Reference(pnDigest),
		"value":        codec.Reference(target2),
		"seq":          codec.Integer(2),
	})))
	require.NoError(t, err)

	pn, ok := ix.Permanode(pnDigest)
	require.True(t, ok)
	require.NotNil(t, pn.single)
	assert.Equal(t, target2, pn.single.Target)
}

func TestWalkFindsMissingReference(t *testing.T) {
	dir := newTestDir(t)
	ix, err := Open(dir, hash.Hash{}, dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)

	missing := hash.Of([]byte("never inserted"))
	root, err := ix.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
		"child": codec.Reference(missing),
	})))
	require.NoError(t, err)
	ix.SetRoot(root)

	var warned []hash.Hash
	ix.Verify(func(m hash.Hash) { warned = append(warned, m) })
	assert.Equal(t, []hash.Hash{missing}, warned)
}

func TestCollectGarbageRemovesUnreachable(t *testing.T) {
	dir := newTestDir(t)
	ix, err := Open(dir, hash.Hash{}, dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)

	keep, err := ix.Insert(codec.ListData(codec.NewList(codec.String("keep"))))
	require.NoError(t, err)
	drop, err := ix.Insert(codec.ListData(codec.NewList(codec.String("drop"))))
	require.NoError(t, err)
	ix.SetRoot(keep)

	live, err := ix.CollectGarbage()
	require.NoError(t, err)
	assert.NotNil(t, live)

	_, ok := ix.Get(drop)
	assert.False(t, ok)
	_, ok = ix.Get(keep)
	assert.True(t, ok)

	_, err = os.Stat(ix.pathFor(drop))
	assert.True(t, os.IsNotExist(err))
}
