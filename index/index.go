// Package index implements the dhstore object index: the in-memory,
// authoritative view of every schema object, its back-references, and
// the permanode/claim state derived from them (spec.md §4.4). Every
// insert is flushed to disk synchronously, one file per object, before
// the in-memory state is updated.
package index

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/dlog"
	"github.com/dhstore/dhstore/hash"
)

// shardLen is the length of the directory-name prefix of an object's
// textual digest used to shard objects/.
const shardLen = 4

// backlink is one entry of the reverse-reference map: source names
// target at position (Key, or Index if IsIndex).
type backlink struct {
	Source  hash.Hash
	Key     string
	Index   int
	IsIndex bool
}

// Index is the bootstrap-then-serve object index. The zero value is
// not usable; construct with Open.
type Index struct {
	dir string
	log *dlog.Logger

	objects    map[hash.Hash]codec.Object
	backlinks  map[hash.Hash][]backlink
	claims     map[hash.Hash]hash.Set // permanode digest -> claim digests naming it
	permanodes map[hash.Hash]*Permanode

	root         hash.Hash
	logPermanode hash.Hash
	hasLogNode   bool
}

func (ix *Index) pathFor(id hash.Hash) string {
	name := id.String()
	return filepath.Join(ix.dir, "objects", name[:shardLen], name[shardLen:])
}

func (ix *Index) shardDir(id hash.Hash) string {
	name := id.String()
	return filepath.Join(ix.dir, "objects", name[:shardLen])
}

// Open bootstraps an Index rooted at dir/objects, reading every object
// file, validating I1, and replaying permanode/claim state. rootDigest
// is the store's root digest (the parsed content of its root file), or
// the zero hash when there is no root yet; Open does not read the root
// file itself.
func Open(dir string, rootDigest hash.Hash, log *dlog.Logger) (*Index, error) {
	ix := &Index{
		dir:        dir,
		log:        log,
		objects:    make(map[hash.Hash]codec.Object),
		backlinks:  make(map[hash.Hash][]backlink),
		claims:     make(map[hash.Hash]hash.Set),
		permanodes: make(map[hash.Hash]*Permanode),
		root:       rootDigest,
	}

	objectsDir := filepath.Join(dir, "objects")
	shards, err := ioutil.ReadDir(objectsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, dherr.IO("index: listing object shards", err)
		}
		shards = nil
	}

	count := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		entries, err := ioutil.ReadDir(filepath.Join(objectsDir, shard.Name()))
		if err != nil {
			return nil, dherr.IO("index: listing object shard contents", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(objectsDir, shard.Name(), e.Name())
			if err := ix.loadObjectFile(shard.Name()+e.Name(), path); err != nil {
				return nil, err
			}
			count++
		}
	}

	if _, ok := ix.objects[rootDigest]; !ok && !rootDigest.IsEmpty() {
		return nil, dherr.Corrupt("root object not present in index", nil)
	}

	if rootObj, ok := ix.objects[rootDigest]; ok && rootObj.Data.Kind == codec.KindDict {
		if logProp, ok := rootObj.Data.Dict.Get("log"); ok {
			logDigest, ok := logProp.AsReference()
			if !ok {
				return nil, dherr.Corrupt("root log field is not a reference", nil)
			}
			if _, ok := ix.permanodes[logDigest]; !ok {
				return nil, dherr.Corrupt("root log target is not a permanode", nil)
			}
			ix.logPermanode = logDigest
			ix.hasLogNode = true
		}
	}

	claimCount := 0
	for _, set := range ix.claims {
		claimCount += len(set)
	}
	log.Info("index bootstrap: recovered %d objects, %d permanodes, %d claims", count, len(ix.permanodes), claimCount)

	return ix, nil
}

func (ix *Index) loadObjectFile(expectedName string, path string) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return dherr.IO("index: reading object file "+path, err)
	}
	data, err := codec.DecodeFile(raw, true)
	if err != nil {
		return dherr.Corrupt("index: decoding object file "+path, err)
	}
	digest := codec.Digest(data)
	if digest.String() != expectedName {
		return dherr.Corrupt("index: object digest does not match its filename "+path, nil)
	}
	ix.insertLoaded(codec.Object{Digest: digest, Data: data})
	return nil
}

// insertLoaded folds an already-on-disk object into memory, during
// bootstrap. It never writes to disk.
func (ix *Index) insertLoaded(obj codec.Object) {
	if _, dup := ix.objects[obj.Digest]; dup {
		return
	}
	ix.objects[obj.Digest] = obj
	ix.recordBacklinks(obj)

	kind, _ := dhstoreKind(obj.Data)
	switch kind {
	case kindPermanode:
		pn, err := newPermanode(obj.Digest, obj.Data)
		if err != nil {
			ix.log.Warn("ignoring malformed permanode %s: %v", obj.Digest, err)
			return
		}
		ix.permanodes[obj.Digest] = pn
		if set, ok := ix.claims[obj.Digest]; ok {
			ix.replayClaims(pn, set)
		}
	case kindClaim:
		node, _, ok := claimShape(obj.Data)
		if !ok {
			ix.log.Warn("ignoring malformed claim %s", obj.Digest)
			return
		}
		if ix.claims[node] == nil {
			ix.claims[node] = hash.NewSet()
		}
		ix.claims[node].Insert(obj.Digest)
		if pn, ok := ix.permanodes[node]; ok {
			pn.apply(obj.Digest, obj.Data)
		}
	}
}

func (ix *Index) replayClaims(pn *Permanode, claimDigests hash.Set) {
	for d := range claimDigests {
		obj, ok := ix.objects[d]
		if !ok {
			continue
		}
		pn.apply(d, obj.Data)
	}
}

func (ix *Index) recordBacklinks(obj codec.Object) {
	for _, ref := range codec.References(obj.Data) {
		target, _ := ref.Property.Digest()
		ix.backlinks[target] = append(ix.backlinks[target], backlink{
			Source:  obj.Digest,
			Key:     ref.Key,
			Index:   ref.Index,
			IsIndex: ref.IsIndex,
		})
	}
}

func (ix *Index) removeBacklinks(obj codec.Object) {
	for _, ref := range codec.References(obj.Data) {
		target, _ := ref.Property.Digest()
		links := ix.backlinks[target]
		out := links[:0]
		for _, l := range links {
			if l.Source != obj.Digest {
				out = append(out, l)
			}
		}
		if len(out) == 0 {
			delete(ix.backlinks, target)
		} else {
			ix.backlinks[target] = out
		}
	}
}

// Insert canonicalizes data, writes it to disk if new, and folds it
// into the in-memory state (spec.md §4.4 insert protocol). It is
// idempotent: inserting the same content twice returns the same
// digest without writing a second file (P5).
func (ix *Index) Insert(data codec.ObjectData) (hash.Hash, error) {
	obj := codec.NewObject(data)
	if _, ok := ix.objects[obj.Digest]; ok {
		return obj.Digest, nil
	}

	if err := os.MkdirAll(ix.shardDir(obj.Digest), 0o755); err != nil {
		return hash.Hash{}, dherr.IO("index: creating object shard dir", err)
	}
	path := ix.pathFor(obj.Digest)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// Another insert raced us to the same content; the file on
			// disk is byte-identical by construction (content-addressed).
			ix.insertLoaded(obj)
			return obj.Digest, nil
		}
		return hash.Hash{}, dherr.IO("index: creating object file", err)
	}
	_, writeErr := f.Write(codec.EncodeFile(data))
	closeErr := f.Close()
	if writeErr != nil {
		os.Remove(path)
		return hash.Hash{}, dherr.IO("index: writing object file", writeErr)
	}
	if closeErr != nil {
		return hash.Hash{}, dherr.IO("index: closing object file", closeErr)
	}

	ix.insertLoaded(obj)
	return obj.Digest, nil
}

// Get returns the object stored under id, if present.
func (ix *Index) Get(id hash.Hash) (codec.Object, bool) {
	obj, ok := ix.objects[id]
	return obj, ok
}

// Root returns the index's root configuration digest.
func (ix *Index) Root() hash.Hash { return ix.root }

// SetRoot updates the root digest in memory; the caller (the store
// façade) is responsible for persisting it to the root file.
func (ix *Index) SetRoot(id hash.Hash) { ix.root = id }

// Permanode returns the in-memory record for a permanode digest, if
// one has been indexed.
func (ix *Index) Permanode(id hash.Hash) (*Permanode, bool) {
	pn, ok := ix.permanodes[id]
	return pn, ok
}

// Count returns the number of objects currently indexed.
func (ix *Index) Count() int {
	return len(ix.objects)
}
