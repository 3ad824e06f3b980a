package store

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhstore/dhstore/dconfig"
	"github.com/dhstore/dhstore/dlog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := ioutil.TempDir("", "dhstore-store-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := Init(dir, dconfig.Default(), dlog.NewStderr(dlog.Warn))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitSeedsRootAndLogPermanode(t *testing.T) {
	s := newTestStore(t)
	root := s.Root()
	assert.False(t, root.IsEmpty())

	obj, ok := s.idx.Get(root)
	require.True(t, ok)
	logProp, ok := obj.Data.Dict.Get("log")
	require.True(t, ok)
	logDigest, ok := logProp.AsReference()
	require.True(t, ok)

	_, ok = s.idx.Permanode(logDigest)
	assert.True(t, ok)
}

func TestAddBlobRoundTrip(t *testing.T) {
	s := newTestStore(t)
	data := []byte("a small blob")
	id, err := s.AddBlob(bytes.NewReader(data))
	require.NoError(t, err)

	got, ok, err := s.GetBlob(id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, data, got)
}

func TestAddFileSplitsLargeInputAcrossBlobs(t *testing.T) {
	s := newTestStore(t)
	data := bytes.Repeat([]byte("0123456789abcdef"), 10000) // 160000 bytes
	listDigest, size, err := s.AddFile(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	obj, ok := s.idx.Get(listDigest)
	require.True(t, ok)
	require.True(t, len(obj.Data.List.Items) > 1, "expected more than one blob chunk")

	var reassembled []byte
	for _, item := range obj.Data.List.Items {
		blobID, ok := item.AsBlob()
		require.True(t, ok)
		chunk, found, err := s.GetBlob(blobID)
		require.NoError(t, err)
		require.True(t, found)
		assert.LessOrEqual(t, len(chunk), hardChunkCap)
		reassembled = append(reassembled, chunk...)
	}
	assert.Equal(t, data, reassembled)
}

func TestAddDirectoryBuildsDictOfReferences(t *testing.T) {
	s := newTestStore(t)

	srcDir, err := ioutil.TempDir("", "dhstore-add-src-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(srcDir) })

	require.NoError(t, ioutil.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("file a"), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(srcDir, "b.txt"), []byte("file b"), 0o644))

	digest, err := s.Add(srcDir)
	require.NoError(t, err)

	obj, ok := s.idx.Get(digest)
	require.True(t, ok)
	assert.Equal(t, 2, obj.Data.Dict.Len())

	entry, ok := obj.Data.Dict.Get("a.txt")
	require.True(t, ok)
	fileDigest, ok := entry.AsReference()
	require.True(t, ok)
	fileObj, ok := s.idx.Get(fileDigest)
	require.True(t, ok)
	sizeProp, ok := fileObj.Data.Dict.Get("size")
	require.True(t, ok)
	n, _ := sizeProp.AsInteger()
	assert.Equal(t, int64(len("file a")), n)
}

func TestAddIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	f, err := ioutil.TempFile("", "dhstore-add-file-")
	require.NoError(t, err)
	defer os.Remove(f.Name())
	f.WriteString("idempotent content")
	f.Close()

	d1, err := s.Add(f.Name())
	require.NoError(t, err)
	d2, err := s.Add(f.Name())
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestGarbageCollectionAfterDeletion(t *testing.T) {
	s := newTestStore(t)

	keepDir, err := ioutil.TempDir("", "dhstore-keep-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(keepDir) })
	require.NoError(t, ioutil.WriteFile(filepath.Join(keepDir, "keep.txt"), []byte("keep this"), 0o644))
	keepDigest, err := s.Add(keepDir)
	require.NoError(t, err)

	dropDir, err := ioutil.TempDir("", "dhstore-drop-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dropDir) })
	require.NoError(t, ioutil.WriteFile(filepath.Join(dropDir, "drop.txt"), []byte("drop this"), 0o644))
	dropDigest, err := s.Add(dropDir)
	require.NoError(t, err)

	// Re-root onto just the subtree we want to keep, orphaning dropDigest.
	s.idx.SetRoot(keepDigest)

	require.NoError(t, s.CollectGarbage())

	_, ok := s.idx.Get(keepDigest)
	assert.True(t, ok, "kept subtree must survive GC")
	_, ok = s.idx.Get(dropDigest)
	assert.False(t, ok, "orphaned subtree must be removed by GC")
}

func TestVerifySucceedsOnAnIntactStore(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddBlob(bytes.NewReader([]byte("verify me")))
	require.NoError(t, err)

	assert.NoError(t, s.Verify())
}
