// Package store implements the dhstore façade: the user-visible
// workflows (spec.md §4.5) composed from the blob store, the object
// index, and the advisory single-writer lock.
package store

import (
	"crypto/rand"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dhstore/dhstore/blobstore"
	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dconfig"
	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/dlog"
	"github.com/dhstore/dhstore/hash"
	"github.com/dhstore/dhstore/index"
	"github.com/dhstore/dhstore/lockfile"
)

// rootFileName is the file at the store root holding the textual
// digest of the current root configuration object (spec.md §6).
const rootFileName = "root"

// Store is an opened dhstore instance: a blob store, an object index,
// and the lock guaranteeing single-writer access to both.
type Store struct {
	dir    string
	blobs  blobstore.BlobStore
	idx    *index.Index
	lock   *lockfile.Lock
	log    *dlog.Logger
	config dconfig.Config
}

// Init creates a new, empty store rooted at dir: the directory
// skeleton, a seed log permanode, a root configuration object
// referencing it, and the root file (spec.md §6 "Store creation").
// dir must not already contain a store.
func Init(dir string, cfg dconfig.Config, log *dlog.Logger) (*Store, error) {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, dherr.InvalidInput("store path %s is not a directory", dir)
		}
		entries, err := ioutil.ReadDir(dir)
		if err != nil {
			return nil, dherr.IO("store: reading target directory", err)
		}
		if len(entries) != 0 {
			return nil, dherr.InvalidInput("store path %s is not empty", dir)
		}
	} else if !os.IsNotExist(err) {
		return nil, dherr.IO("store: stat target directory", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0o755); err != nil {
		return nil, dherr.IO("store: creating objects dir", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "blobs"), 0o755); err != nil {
		return nil, dherr.IO("store: creating blobs dir", err)
	}

	lock, err := lockfile.Acquire(dir)
	if err != nil {
		return nil, err
	}

	blobs := blobstore.NewFileBlobStore(dir)
	idx, err := index.Open(dir, hash.Hash{}, log)
	if err != nil {
		lock.Release()
		return nil, err
	}

	random := make([]byte, hash.ByteLen)
	if _, err := rand.Read(random); err != nil {
		lock.Release()
		return nil, dherr.IO("store: generating permanode random field", err)
	}
	permanodeData := codec.DictData(codec.NewDict(map[string]codec.Property{
		"dhstore_kind": codec.String("permanode"),
		"random":       codec.String(string(random)),
		"sort":         codec.String("+seq"),
		"type":         codec.String("single"),
	}))
	logDigest, err := idx.Insert(permanodeData)
	if err != nil {
		lock.Release()
		return nil, err
	}

	rootData := codec.DictData(codec.NewDict(map[string]codec.Property{
		"log": codec.Reference(logDigest),
	}))
	rootDigest, err := idx.Insert(rootData)
	if err != nil {
		lock.Release()
		return nil, err
	}
	idx.SetRoot(rootDigest)

	if err := writeRootFile(dir, rootDigest); err != nil {
		lock.Release()
		return nil, err
	}

	log.Info("initialized store at %s with root %s", dir, rootDigest)
	return &Store{dir: dir, blobs: blobs, idx: idx, lock: lock, log: log, config: cfg}, nil
}

// Open opens an existing store rooted at dir, bootstrapping the
// object index from disk.
func Open(dir string, cfg dconfig.Config, log *dlog.Logger) (*Store, error) {
	lock, err := lockfile.Acquire(dir)
	if err != nil {
		return nil, err
	}

	rootDigest, err := readRootFile(dir)
	if err != nil {
		lock.Release()
		return nil, err
	}

	idx, err := index.Open(dir, rootDigest, log)
	if err != nil {
		lock.Release()
		return nil, err
	}

	blobs := blobstore.NewFileBlobStore(dir)
	return &Store{dir: dir, blobs: blobs, idx: idx, lock: lock, log: log, config: cfg}, nil
}

// Close releases the store's lock. It does not flush anything: every
// write the façade performs is already durable by the time its call
// returns (spec.md §5).
func (s *Store) Close() error {
	return s.lock.Release()
}

func writeRootFile(dir string, digest hash.Hash) error {
	path := filepath.Join(dir, rootFileName)
	tmp := path + "." + uuid.New().String() + ".tmp"
	if err := ioutil.WriteFile(tmp, []byte(digest.String()), 0o644); err != nil {
		return dherr.IO("store: writing root file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return dherr.IO("store: committing root file", err)
	}
	return nil
}

func readRootFile(dir string) (hash.Hash, error) {
	raw, err := ioutil.ReadFile(filepath.Join(dir, rootFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return hash.Hash{}, dherr.Corrupt("store: missing root file", nil)
		}
		return hash.Hash{}, dherr.IO("store: reading root file", err)
	}
	digest, ok := hash.MaybeParse(string(raw))
	if !ok {
		return hash.Hash{}, dherr.Corrupt("store: root file does not contain a valid digest", nil)
	}
	return digest, nil
}

