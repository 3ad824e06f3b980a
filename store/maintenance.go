package store

import (
	"context"
	"fmt"
	"io"

	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/hash"
)

// Verify walks the object index from root, then verifies every blob's
// content against its digest. Anomalies are logged as warnings; Verify
// only returns an error for a failure that aborts the scan outright.
func (s *Store) Verify() error {
	ctx := context.Background()

	s.idx.Verify(func(missing hash.Hash) {
		s.log.Warn("object %s is referenced but missing", missing)
	})

	return s.blobs.Verify(ctx, func(id hash.Hash, err error) {
		s.log.Warn("blob %s failed verification: %v", id, err)
	})
}

// CollectGarbage removes every object unreachable from root, then
// sweeps the blob store down to the blobs still referenced by the
// surviving objects (P6).
func (s *Store) CollectGarbage() error {
	ctx := context.Background()

	liveBlobs, err := s.idx.CollectGarbage()
	if err != nil {
		return err
	}
	removed, err := s.blobs.Sweep(ctx, liveBlobs)
	if err != nil {
		return err
	}
	s.log.Info("garbage collection removed %d blobs", removed)
	return nil
}

// PrintObject pretty-prints the object graph rooted at id to w, down
// to depth levels (a negative depth means unlimited, per spec.md
// §4.5's "None means unlimited").
func (s *Store) PrintObject(w io.Writer, id hash.Hash, depth int) error {
	return s.printObject(w, id, depth, 0)
}

func (s *Store) printObject(w io.Writer, id hash.Hash, maxDepth, cur int) error {
	indent := ""
	for i := 0; i < cur; i++ {
		indent += "  "
	}

	obj, ok := s.idx.Get(id)
	if !ok {
		fmt.Fprintf(w, "%s%s (missing)\n", indent, id)
		return nil
	}

	switch obj.Data.Kind {
	case codec.KindDict:
		fmt.Fprintf(w, "%s%s (dict)\n", indent, id)
		for _, e := range obj.Data.Dict.Entries() {
			if err := s.printProperty(w, e.Key, e.Value, maxDepth, cur+1); err != nil {
				return err
			}
		}
	case codec.KindList:
		fmt.Fprintf(w, "%s%s (list)\n", indent, id)
		for i, item := range obj.Data.List.Items {
			if err := s.printProperty(w, fmt.Sprintf("[%d]", i), item, maxDepth, cur+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) printProperty(w io.Writer, label string, p codec.Property, maxDepth, cur int) error {
	indent := ""
	for i := 0; i < cur; i++ {
		indent += "  "
	}

	switch p.Kind() {
	case codec.KindString:
		v, _ := p.AsString()
		fmt.Fprintf(w, "%s%s: %q\n", indent, label, v)
	case codec.KindInteger:
		v, _ := p.AsInteger()
		fmt.Fprintf(w, "%s%s: %d\n", indent, label, v)
	case codec.KindReference:
		target, _ := p.AsReference()
		fmt.Fprintf(w, "%s%s: -> %s\n", indent, label, target)
		if maxDepth < 0 || cur <= maxDepth {
			return s.printObject(w, target, maxDepth, cur)
		}
	case codec.KindBlob:
		target, _ := p.AsBlob()
		size, ok, err := s.blobs.Stat(context.Background(), target)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(w, "%s%s: blob %s (%d bytes)\n", indent, label, target, size)
		} else {
			fmt.Fprintf(w, "%s%s: blob %s (missing)\n", indent, label, target)
		}
	}
	return nil
}
