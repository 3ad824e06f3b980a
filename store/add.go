package store

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/dhstore/dhstore/chunker"
	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/hash"
)

// hardChunkCap bounds any single blob produced by AddFile, even when
// the chunker's average target (2^nbits) would let a chunk run longer
// (spec.md §4.5).
const hardChunkCap = 64 * 1024

// chunkerReadBuf is the chunker's own internal read buffer size; it
// only bounds batch size between boundary checks, not chunk size.
const chunkerReadBuf = 64 * 1024

// AddBlob buffers r fully and inserts it as a single blob.
func (s *Store) AddBlob(r io.Reader) (hash.Hash, error) {
	ctx := context.Background()
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return hash.Hash{}, dherr.IO("store: reading blob input", err)
	}
	return s.blobs.Put(ctx, data)
}

// AddFile splits r with the content-defined chunker (nbits from the
// store's configuration, 13 by default), writes
// each resulting run as a blob (splitting any run that would exceed
// hardChunkCap), and wraps the resulting Blob sequence in a List
// object. It returns the list object's digest and the total byte
// count consumed.
func (s *Store) AddFile(r io.Reader) (hash.Hash, int64, error) {
	ctx := context.Background()
	c := chunker.New(r, s.config.ChunkerNBits, chunkerReadBuf)

	var props []codec.Property
	var buf []byte
	var total int64

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		id, err := s.blobs.Put(ctx, buf)
		if err != nil {
			return err
		}
		props = append(props, codec.Blob(id))
		buf = buf[:0]
		return nil
	}

	for {
		data, boundary, err := c.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return hash.Hash{}, 0, dherr.IO("store: reading file input", err)
		}
		if boundary {
			if err := flush(); err != nil {
				return hash.Hash{}, 0, err
			}
			continue
		}
		total += int64(len(data))
		buf = append(buf, data...)
		for len(buf) > hardChunkCap {
			head := make([]byte, hardChunkCap)
			copy(head, buf[:hardChunkCap])
			id, err := s.blobs.Put(ctx, head)
			if err != nil {
				return hash.Hash{}, 0, err
			}
			props = append(props, codec.Blob(id))
			buf = append([]byte(nil), buf[hardChunkCap:]...)
		}
	}
	if err := flush(); err != nil {
		return hash.Hash{}, 0, err
	}

	listDigest, err := s.idx.Insert(codec.ListData(codec.NewList(props...)))
	if err != nil {
		return hash.Hash{}, 0, err
	}
	return listDigest, total, nil
}

// Add ingests the filesystem entity at path: a directory becomes a
// Dict keyed by entry name with Reference values; a regular file is
// chunked via AddFile and wrapped in {size, contents}; anything else
// is an I/O "not found" class error.
func (s *Store) Add(path string) (hash.Hash, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return hash.Hash{}, dherr.IO(fmt.Sprintf("store: adding %s", path), err)
	}

	switch {
	case fi.IsDir():
		entries, err := ioutil.ReadDir(path)
		if err != nil {
			return hash.Hash{}, dherr.IO("store: listing directory "+path, err)
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		sort.Strings(names)

		props := make(map[string]codec.Property, len(names))
		for _, name := range names {
			childDigest, err := s.Add(filepath.Join(path, name))
			if err != nil {
				return hash.Hash{}, err
			}
			props[name] = codec.Reference(childDigest)
		}
		return s.idx.Insert(codec.DictData(codec.NewDict(props)))

	case fi.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return hash.Hash{}, dherr.IO("store: opening file "+path, err)
		}
		defer f.Close()

		listDigest, size, err := s.AddFile(f)
		if err != nil {
			return hash.Hash{}, err
		}
		return s.idx.Insert(codec.DictData(codec.NewDict(map[string]codec.Property{
			"size":     codec.Integer(size),
			"contents": codec.Reference(listDigest),
		})))

	default:
		return hash.Hash{}, dherr.IO(fmt.Sprintf("store: %s is not a regular file or directory", path), os.ErrNotExist)
	}
}
