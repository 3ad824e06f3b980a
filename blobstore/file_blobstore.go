package blobstore

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/hash"
)

// shardLen is the number of leading characters of a digest's textual
// form used as the containing directory name.
const shardLen = 2

// mmapThreshold is the size from which Verify reads a blob's bytes
// through a memory map instead of ioutil.ReadFile. The mapped bytes
// are still copied into a heap buffer before hashing.
const mmapThreshold = 64 * 1024

// FileBlobStore is the on-disk BlobStore: each blob lives at
// <root>/blobs/<first two digest chars>/<remaining 42 digest chars>,
// grounded on the dhstore FileStorage layout (see original_source's
// file_storage.rs) rather than the teacher's own local blobstore,
// which addresses by caller-chosen key instead of content digest.
type FileBlobStore struct {
	root string
}

var _ BlobStore = (*FileBlobStore)(nil)

// NewFileBlobStore returns a FileBlobStore rooted at dir. Init (store
// façade) creates the blobs/ directory; the shard directories below
// it are created on demand by the Put methods.
func NewFileBlobStore(dir string) *FileBlobStore {
	return &FileBlobStore{root: dir}
}

func (s *FileBlobStore) pathFor(id hash.Hash) string {
	name := id.String()
	return filepath.Join(s.root, "blobs", name[:shardLen], name[shardLen:])
}

func (s *FileBlobStore) shardDir(id hash.Hash) string {
	name := id.String()
	return filepath.Join(s.root, "blobs", name[:shardLen])
}

func (s *FileBlobStore) Put(ctx context.Context, data []byte) (hash.Hash, error) {
	id := hash.Of(data)
	if err := s.putKnown(id, data); err != nil {
		return hash.Hash{}, err
	}
	return id, nil
}

func (s *FileBlobStore) PutStream(ctx context.Context, r io.Reader) (hash.Hash, error) {
	tmp, err := s.createTemp()
	if err != nil {
		return hash.Hash{}, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	h := hash.NewWriter()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		tmp.Close()
		return hash.Hash{}, dherr.IO("blobstore: streaming into temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return hash.Hash{}, dherr.IO("blobstore: closing temp file", err)
	}

	id := h.Sum()
	final := s.pathFor(id)
	if _, err := os.Stat(final); err == nil {
		return id, nil // already present, byte-identical by construction
	}
	if err := os.MkdirAll(s.shardDir(id), 0o755); err != nil {
		return hash.Hash{}, dherr.IO("blobstore: creating shard dir", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return hash.Hash{}, dherr.IO("blobstore: committing blob", err)
	}
	return id, nil
}

func (s *FileBlobStore) PutKnown(ctx context.Context, id hash.Hash, data []byte) error {
	return s.putKnown(id, data)
}

func (s *FileBlobStore) putKnown(id hash.Hash, data []byte) error {
	final := s.pathFor(id)
	if _, err := os.Stat(final); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.shardDir(id), 0o755); err != nil {
		return dherr.IO("blobstore: creating shard dir", err)
	}

	tmp, err := s.createTemp()
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return dherr.IO("blobstore: writing temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return dherr.IO("blobstore: closing temp file", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return dherr.IO("blobstore: committing blob", err)
	}
	return nil
}

func (s *FileBlobStore) createTemp() (*os.File, error) {
	dir := filepath.Join(s.root, "tmp")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dherr.IO("blobstore: creating tmp dir", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, uuid.New().String()), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, dherr.IO("blobstore: creating temp file", err)
	}
	return f, nil
}

func (s *FileBlobStore) Get(ctx context.Context, id hash.Hash) ([]byte, bool, error) {
	data, err := ioutil.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, dherr.IO("blobstore: reading blob", err)
	}
	return data, true, nil
}

func (s *FileBlobStore) Stat(ctx context.Context, id hash.Hash) (int64, bool, error) {
	fi, err := os.Stat(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, dherr.IO("blobstore: stat blob", err)
	}
	return fi.Size(), true, nil
}

func (s *FileBlobStore) Delete(ctx context.Context, id hash.Hash) error {
	err := os.Remove(s.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return dherr.IO("blobstore: deleting blob", err)
	}
	return nil
}

func (s *FileBlobStore) List(ctx context.Context, fn func(hash.Hash) error) error {
	return s.walk(func(id hash.Hash, path string, corrupt error) error {
		if corrupt != nil {
			return corrupt
		}
		return fn(id)
	})
}

// entryNameLen is the length of a blob filename (the digest's textual
// form minus the shard-prefix characters that make up its directory
// name).
const entryNameLen = hash.StringLen - shardLen

// walk visits every entry under blobs/, pairing its shard-derived
// digest with its path. A shard directory name that isn't shardLen
// characters, or an entry name that isn't entryNameLen characters or
// doesn't parse as a digest, is store corruption (spec.md §4.3): fn is
// called with a non-nil corrupt error and a zero id so the caller
// decides whether to stop (List) or report and keep scanning
// (Verify). A shard directory whose contents cannot be listed is
// passed to fn the same way, with an I/O error in place of corrupt.
func (s *FileBlobStore) walk(fn func(id hash.Hash, path string, corrupt error) error) error {
	blobsDir := filepath.Join(s.root, "blobs")
	shards, err := ioutil.ReadDir(blobsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return dherr.IO("blobstore: listing shard dirs", err)
	}
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		if len(shard.Name()) != shardLen {
			corrupt := dherr.Corrupt(fmt.Sprintf("blobstore: shard directory name %q is not %d characters", shard.Name(), shardLen), nil)
			if err := fn(hash.Hash{}, filepath.Join(blobsDir, shard.Name()), corrupt); err != nil {
				return err
			}
			continue
		}
		entries, err := ioutil.ReadDir(filepath.Join(blobsDir, shard.Name()))
		if err != nil {
			ioErr := dherr.IO("blobstore: listing shard contents", err)
			if err := fn(hash.Hash{}, filepath.Join(blobsDir, shard.Name()), ioErr); err != nil {
				return err
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(blobsDir, shard.Name(), e.Name())
			if len(e.Name()) != entryNameLen {
				corrupt := dherr.Corrupt(fmt.Sprintf("blobstore: blob file name %q is not %d characters", e.Name(), entryNameLen), nil)
				if err := fn(hash.Hash{}, path, corrupt); err != nil {
					return err
				}
				continue
			}
			id, ok := hash.MaybeParse(shard.Name() + e.Name())
			if !ok {
				corrupt := dherr.Corrupt(fmt.Sprintf("blobstore: blob file name %q does not parse as a digest", shard.Name()+e.Name()), nil)
				if err := fn(hash.Hash{}, path, corrupt); err != nil {
					return err
				}
				continue
			}
			if err := fn(id, path, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *FileBlobStore) Verify(ctx context.Context, warn func(hash.Hash, error)) error {
	return s.walk(func(id hash.Hash, path string, corrupt error) error {
		if corrupt != nil {
			warn(id, corrupt)
			return nil
		}
		got, err := readForVerify(path)
		if err != nil {
			warn(id, dherr.IO("blobstore: reading blob during verify", err))
			return nil
		}
		if hash.Of(got) != id {
			warn(id, dherr.Corrupt("blobstore: content does not match its digest", errors.Errorf("path %s", path)))
		}
		return nil
	})
}

func (s *FileBlobStore) Sweep(ctx context.Context, live hash.Set) (int, error) {
	var toDelete []hash.Hash
	err := s.walk(func(id hash.Hash, path string, corrupt error) error {
		if corrupt != nil {
			return corrupt
		}
		if !live.Has(id) {
			toDelete = append(toDelete, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, id := range toDelete {
		if err := s.Delete(ctx, id); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
