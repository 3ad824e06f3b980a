package codec

import (
	"sort"

	"github.com/dhstore/dhstore/hash"
)

// DictEntry is one key/value pair of a Dict, exposed in ascending key
// order by Dict.Entries.
type DictEntry struct {
	Key   string
	Value Property
}

// Dict is an ordered mapping from unique String keys to Properties;
// I3 requires iteration in ascending key byte order, which Dict
// maintains internally so every consumer (encoder, back-reference
// walk, pretty-printer) sees the same order for free.
type Dict struct {
	entries []DictEntry
}

// NewDict builds a Dict from m, sorting keys ascending. Panics if that
// is not possible, i.e. never, since map keys are already unique.
func NewDict(m map[string]Property) Dict {
	entries := make([]DictEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, DictEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return Dict{entries: entries}
}

// Get returns the value for key, if present.
func (d Dict) Get(key string) (Property, bool) {
	i := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].Key >= key })
	if i < len(d.entries) && d.entries[i].Key == key {
		return d.entries[i].Value, true
	}
	return Property{}, false
}

// Len returns the number of entries in d.
func (d Dict) Len() int { return len(d.entries) }

// Entries returns d's entries in ascending key order. The returned
// slice is owned by the caller; mutating it does not affect d.
func (d Dict) Entries() []DictEntry {
	out := make([]DictEntry, len(d.entries))
	copy(out, d.entries)
	return out
}

// List is a finite ordered sequence of Properties.
type List struct {
	Items []Property
}

// NewList builds a List from items.
func NewList(items ...Property) List {
	out := make([]Property, len(items))
	copy(out, items)
	return List{Items: out}
}

// ObjectKind discriminates the two ObjectData variants.
type ObjectKind int

const (
	KindDict ObjectKind = iota
	KindList
)

// ObjectData is a Dict or a List: the two shapes a persisted schema
// object can take. Implemented as a tagged union rather than an
// interface for the same reason as Property (spec.md §9): the family
// is closed at two cases, and exhaustive switches at every consumer
// (encoder, walker, pretty-printer) are clearer than a type-asserted
// interface.
type ObjectData struct {
	Kind ObjectKind
	Dict Dict
	List List
}

// DictData wraps a Dict as an ObjectData.
func DictData(d Dict) ObjectData { return ObjectData{Kind: KindDict, Dict: d} }

// ListData wraps a List as an ObjectData.
func ListData(l List) ObjectData { return ObjectData{Kind: KindList, List: l} }

// Object is a schema object: its ObjectData paired with the digest of
// its canonical encoding. Digest is a pure function of Data, so two
// Objects built from equal Data always carry equal Digest (I1).
type Object struct {
	Digest hash.Hash
	Data   ObjectData
}

// NewObject canonicalizes data and computes its digest.
func NewObject(data ObjectData) Object {
	return Object{Digest(data), data}
}

// References returns every Reference and Blob property reachable one
// level into data, alongside the position-key (a string dict key or an
// int list index) it was found at — the raw material for the object
// index's back-reference bookkeeping (spec.md §3, back-reference).
func References(data ObjectData) []PositionedProperty {
	var out []PositionedProperty
	switch data.Kind {
	case KindDict:
		for _, e := range data.Dict.Entries() {
			if e.Value.IsRefLike() {
				out = append(out, PositionedProperty{Key: e.Key, Property: e.Value})
			}
		}
	case KindList:
		for i, v := range data.List.Items {
			if v.IsRefLike() {
				out = append(out, PositionedProperty{Index: i, IsIndex: true, Property: v})
			}
		}
	}
	return out
}

// PositionedProperty pairs a ref-like Property with the position
// (dict key, or list index) it occupies in its containing object.
type PositionedProperty struct {
	Key      string
	Index    int
	IsIndex  bool
	Property Property
}
