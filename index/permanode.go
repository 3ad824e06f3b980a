package index

import (
	"strings"

	"github.com/dhstore/dhstore/codec"
	"github.com/dhstore/dhstore/dherr"
	"github.com/dhstore/dhstore/hash"
)

const (
	kindKey       = "dhstore_kind"
	kindPermanode = "permanode"
	kindClaim     = "claim"

	permanodeRandomKey = "random"
	permanodeSortKey   = "sort"
	permanodeTypeKey   = "type"

	claimNodeKey  = "node"
	claimValueKey = "value"

	typeSingle = "single"
	typeSet    = "set"
)

// Permanode is the in-memory record for a permanode object: its sort
// policy, its retention type, and the claims currently in effect
// against it (spec.md §3, §4.4).
type Permanode struct {
	Digest hash.Hash

	SortField string
	Ascending bool
	Type      string // typeSingle or typeSet

	// single holds the one retained claim when Type == typeSingle, or
	// is nil if none has been applied yet.
	single *appliedClaim

	// set holds every retained claim when Type == typeSet, keyed by
	// claim digest.
	set map[hash.Hash]*appliedClaim
}

type appliedClaim struct {
	ClaimDigest hash.Hash
	Target      hash.Hash
	SortValue   codec.Property
}

// Claims returns the permanode's currently retained claim digests, in
// no particular order for a set-typed permanode, or a single-element
// (or empty) slice for a single-typed one.
func (pn *Permanode) Claims() []hash.Hash {
	if pn.Type == typeSingle {
		if pn.single == nil {
			return nil
		}
		return []hash.Hash{pn.single.ClaimDigest}
	}
	out := make([]hash.Hash, 0, len(pn.set))
	for d := range pn.set {
		out = append(out, d)
	}
	return out
}

// apply folds one validated claim into the permanode's indexed set,
// honoring single/set retention semantics (I5). A claim missing the
// permanode's own sort field is ignored: it is still recorded in the
// index's claims-by-permanode set (the caller does that), it simply
// never becomes the permanode's effective value.
func (pn *Permanode) apply(claimDigest hash.Hash, data codec.ObjectData) {
	if data.Kind != codec.KindDict {
		return
	}
	sortVal, ok := data.Dict.Get(pn.SortField)
	if !ok {
		return
	}
	valueProp, ok := data.Dict.Get(claimValueKey)
	if !ok {
		return
	}
	target, ok := valueProp.AsReference()
	if !ok {
		return
	}
	ac := &appliedClaim{ClaimDigest: claimDigest, Target: target, SortValue: sortVal}

	switch pn.Type {
	case typeSet:
		if pn.set == nil {
			pn.set = make(map[hash.Hash]*appliedClaim)
		}
		pn.set[claimDigest] = ac
	default: // typeSingle
		if pn.single == nil {
			pn.single = ac
			return
		}
		cmp := ac.SortValue.Compare(pn.single.SortValue)
		var better bool
		switch {
		case cmp > 0:
			better = pn.Ascending
		case cmp < 0:
			better = !pn.Ascending
		default:
			// Tie on sort value: break deterministically by claim
			// digest so replay order never changes the outcome.
			better = ac.ClaimDigest.Compare(pn.single.ClaimDigest) > 0
		}
		if better {
			pn.single = ac
		}
	}
}

// newPermanode validates data as a permanode Dict (spec.md §4.4 step
// 4) and builds its in-memory record, or reports why it doesn't
// qualify.
func newPermanode(digest hash.Hash, data codec.ObjectData) (*Permanode, error) {
	if data.Kind != codec.KindDict {
		return nil, dherr.Corrupt("permanode object is not a dict", nil)
	}
	randomProp, ok := data.Dict.Get(permanodeRandomKey)
	if !ok {
		return nil, dherr.Corrupt("permanode missing random field", nil)
	}
	randomStr, ok := randomProp.AsString()
	if !ok || len(randomStr) != hash.ByteLen {
		return nil, dherr.Corrupt("permanode random field has the wrong length", nil)
	}

	sortProp, ok := data.Dict.Get(permanodeSortKey)
	if !ok {
		return nil, dherr.Corrupt("permanode missing sort field", nil)
	}
	sortStr, ok := sortProp.AsString()
	if !ok || len(sortStr) < 2 {
		return nil, dherr.Corrupt("permanode sort field is malformed", nil)
	}
	var ascending bool
	switch sortStr[0] {
	case '+':
		ascending = true
	case '-':
		ascending = false
	default:
		return nil, dherr.Corrupt("permanode sort field missing direction sign", nil)
	}
	field := strings.TrimSpace(sortStr[1:])
	if field == "" {
		return nil, dherr.Corrupt("permanode sort field names no field", nil)
	}

	typ := typeSingle
	if typeProp, ok := data.Dict.Get(permanodeTypeKey); ok {
		s, ok := typeProp.AsString()
		if !ok || (s != typeSingle && s != typeSet) {
			return nil, dherr.Corrupt("permanode type field is not recognized", nil)
		}
		typ = s
	}

	return &Permanode{
		Digest:    digest,
		SortField: field,
		Ascending: ascending,
		Type:      typ,
	}, nil
}

// claimShape reports whether data has the syntactic shape of a claim
// (spec.md §4.4 step 5): a dict carrying node and value references.
// It does not check against any particular permanode's sort field.
func claimShape(data codec.ObjectData) (node, value hash.Hash, ok bool) {
	if data.Kind != codec.KindDict {
		return hash.Hash{}, hash.Hash{}, false
	}
	nodeProp, ok := data.Dict.Get(claimNodeKey)
	if !ok {
		return hash.Hash{}, hash.Hash{}, false
	}
	node, ok = nodeProp.AsReference()
	if !ok {
		return hash.Hash{}, hash.Hash{}, false
	}
	valueProp, ok := data.Dict.Get(claimValueKey)
	if !ok {
		return hash.Hash{}, hash.Hash{}, false
	}
	value, ok = valueProp.AsReference()
	if !ok {
		return hash.Hash{}, hash.Hash{}, false
	}
	return node, value, true
}

// dhstoreKind returns the dhstore_kind string field of data, if data
// is a dict that has one.
func dhstoreKind(data codec.ObjectData) (string, bool) {
	if data.Kind != codec.KindDict {
		return "", false
	}
	p, ok := data.Dict.Get(kindKey)
	if !ok {
		return "", false
	}
	return p.AsString()
}
