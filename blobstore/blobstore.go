// Package blobstore implements the dhstore blob store: a sharded,
// content-addressed file store for immutable byte payloads (spec.md
// §4.3). Grounded in the teacher's own blobstore package (Blobstore
// interface, CheckAndPutError/IsNotFoundError-style predicate
// functions) but simplified to the spec's content-addressed contract:
// there is no "key" or version concept here, only get/put/delete by
// the digest of the content itself.
package blobstore

import (
	"context"
	"io"

	"github.com/dhstore/dhstore/hash"
)

// BlobStore persists, retrieves, enumerates, verifies and deletes
// unnamed byte payloads by the digest of their content.
type BlobStore interface {
	// Put hashes data, writing it under that digest unless a blob
	// with the same digest already exists.
	Put(ctx context.Context, data []byte) (hash.Hash, error)

	// PutStream is Put for a streaming source: bytes are written to a
	// temporary file while hashing, then atomically renamed to their
	// final path once the digest is known.
	PutStream(ctx context.Context, r io.Reader) (hash.Hash, error)

	// PutKnown writes data under the caller-asserted digest id
	// without re-hashing it; intended for replication paths where the
	// digest is already trusted.
	PutKnown(ctx context.Context, id hash.Hash, data []byte) error

	// Get returns the content of id, or ok=false if no such blob
	// exists.
	Get(ctx context.Context, id hash.Hash) (data []byte, ok bool, err error)

	// Stat reports the size of id's content without reading it, or
	// ok=false if no such blob exists.
	Stat(ctx context.Context, id hash.Hash) (size int64, ok bool, err error)

	// Delete removes id; deleting a nonexistent blob is a no-op
	// success.
	Delete(ctx context.Context, id hash.Hash) error

	// List iterates every blob digest in the store. It may fail
	// mid-iteration with an I/O error, in which case the caller stops.
	List(ctx context.Context, fn func(hash.Hash) error) error

	// Verify iterates every blob, re-hashing its content and comparing
	// it with the filename-derived digest. Each mismatch is reported
	// to warn and the scan continues; an I/O error on one entry does
	// not stop the scan, it is also reported to warn. Verify only
	// returns an error for a failure that prevents the scan from
	// continuing at all (e.g. the root directory itself is
	// unreadable).
	Verify(ctx context.Context, warn func(id hash.Hash, err error)) error

	// Sweep deletes every blob whose digest is not in live, returning
	// the count removed.
	Sweep(ctx context.Context, live hash.Set) (removed int, err error)
}
