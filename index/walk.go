package index

import (
	"os"

	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/hash"
)

// WalkResult is the outcome of a reachability walk from the root: the
// objects actually visited and the blobs they reference.
type WalkResult struct {
	Visited    hash.Set
	LiveBlobs  hash.Set
	MissingRef []hash.Hash // referenced but absent objects, logged not fatal
}

// walk performs the BFS reachability traversal spec.md §4.4 describes,
// starting from root. Missing referenced objects are recorded, not
// fatal.
func (ix *Index) walk() WalkResult {
	visited := hash.NewSet()
	liveBlobs := hash.NewSet()
	var missing []hash.Hash

	if ix.root.IsEmpty() {
		return WalkResult{Visited: visited, LiveBlobs: liveBlobs}
	}

	queue := []hash.Hash{ix.root}
	visited.Insert(ix.root)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		obj, ok := ix.objects[cur]
		if !ok {
			missing = append(missing, cur)
			continue
		}
		for _, ref := range codec.References(obj.Data) {
			target, _ := ref.Property.Digest()
			if ref.Property.Kind() == codec.KindBlob {
				liveBlobs.Insert(target)
				continue
			}
			if !visited.Has(target) {
				visited.Insert(target)
				queue = append(queue, target)
			}
		}
	}
	return WalkResult{Visited: visited, LiveBlobs: liveBlobs, MissingRef: missing}
}

// Verify walks the graph from root, reporting every missing reference
// to warn. It returns the computed live-blobs set so a caller that
// also wants to verify the blob store doesn't need a second walk.
func (ix *Index) Verify(warn func(missing hash.Hash)) hash.Set {
	res := ix.walk()
	for _, m := range res.MissingRef {
		warn(m)
	}
	return res.LiveBlobs
}

// CollectGarbage walks the graph from root and deletes every object
// digest not reached, both from memory and from disk, cleaning their
// backlink entries. It returns the live-blobs set for the blob store's
// own sweep.
func (ix *Index) CollectGarbage() (hash.Set, error) {
	res := ix.walk()

	var toRemove []hash.Hash
	for digest := range ix.objects {
		if !res.Visited.Has(digest) {
			toRemove = append(toRemove, digest)
		}
	}

	for _, digest := range toRemove {
		obj := ix.objects[digest]
		if err := os.Remove(ix.pathFor(digest)); err != nil && !os.IsNotExist(err) {
			return nil, dherr.IO("index: deleting garbage object", err)
		}
		ix.removeBacklinks(obj)
		delete(ix.objects, digest)
		delete(ix.permanodes, digest)
		delete(ix.claims, digest)
	}

	return res.LiveBlobs, nil
}
