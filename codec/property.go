// Package codec implements the dhstore canonical object encoding: the
// self-describing, deterministic byte grammar used both to persist
// objects on disk and as the pre-image hashed to produce their digest.
//
// The grammar has no example-repo precedent in the retrieval pack (no
// teacher package implements this exact bencode-like format), so it is
// written directly from the grammar in spec.md §4.2, in the structural
// style the teacher uses for its other low-level binary codecs: plain
// byte-slice readers/writers, no reflection, exhaustive switches over a
// small closed set of tagged kinds rather than interface dispatch.
package codec

import (
	"bytes"
	"strings"

	"github.com/dhstore/dhstore/hash"
)

// PropertyKind identifies which of the four Property variants a value
// holds.
type PropertyKind int

const (
	KindString PropertyKind = iota
	KindInteger
	KindReference
	KindBlob
)

// Property is a tagged value living inside an ObjectData: a String, an
// Integer, a Reference to another object, or a Blob reference to a
// byte payload. Implemented as a tagged union (a Kind discriminant plus
// one field per variant) rather than an interface, per spec.md §9: the
// family is closed and small, so exhaustive switches read better than
// virtual dispatch.
type Property struct {
	kind   PropertyKind
	str    string
	number int64
	ref    hash.Hash
}

// String builds a String property.
func String(s string) Property { return Property{kind: KindString, str: s} }

// Integer builds an Integer property.
func Integer(n int64) Property { return Property{kind: KindInteger, number: n} }

// Reference builds a Reference property pointing at an object digest.
func Reference(h hash.Hash) Property { return Property{kind: KindReference, ref: h} }

// Blob builds a Blob property pointing at a blob digest.
func Blob(h hash.Hash) Property { return Property{kind: KindBlob, ref: h} }

// Kind reports which variant p holds.
func (p Property) Kind() PropertyKind { return p.kind }

// AsString returns p's string value, if p is a String.
func (p Property) AsString() (string, bool) {
	if p.kind != KindString {
		return "", false
	}
	return p.str, true
}

// AsInteger returns p's integer value, if p is an Integer.
func (p Property) AsInteger() (int64, bool) {
	if p.kind != KindInteger {
		return 0, false
	}
	return p.number, true
}

// AsReference returns p's target digest, if p is a Reference.
func (p Property) AsReference() (hash.Hash, bool) {
	if p.kind != KindReference {
		return hash.Hash{}, false
	}
	return p.ref, true
}

// AsBlob returns p's target digest, if p is a Blob.
func (p Property) AsBlob() (hash.Hash, bool) {
	if p.kind != KindBlob {
		return hash.Hash{}, false
	}
	return p.ref, true
}

// IsRefLike reports whether p is a Reference or a Blob: the two kinds
// that name a digest and are ordered together by that digest's bytes.
func (p Property) IsRefLike() bool {
	return p.kind == KindReference || p.kind == KindBlob
}

// Digest returns p's target digest and true if p is a Reference or a
// Blob; otherwise it returns false.
func (p Property) Digest() (hash.Hash, bool) {
	if !p.IsRefLike() {
		return hash.Hash{}, false
	}
	return p.ref, true
}

// rank orders the three comparison classes: String < Integer <
// Reference/Blob (the two ref-like kinds are equivalent for ordering
// purposes and compared by digest bytes).
func (k PropertyKind) rank() int {
	switch k {
	case KindString:
		return 0
	case KindInteger:
		return 1
	default:
		return 2
	}
}

// Compare defines the total, deterministic order over Properties
// required by spec.md §3: Strings < Integers < (References/Blobs,
// ordered by digest bytes); natural ordering within a kind.
func (p Property) Compare(other Property) int {
	pr, or := p.kind.rank(), other.kind.rank()
	if pr != or {
		if pr < or {
			return -1
		}
		return 1
	}
	switch pr {
	case 0:
		return strings.Compare(p.str, other.str)
	case 1:
		switch {
		case p.number < other.number:
			return -1
		case p.number > other.number:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare(p.ref[:], other.ref[:])
	}
}

// Equal reports whether p and other have the same kind and value.
func (p Property) Equal(other Property) bool {
	return p.Compare(other) == 0 && p.kind == other.kind
}
