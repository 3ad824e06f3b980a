package codec

import (
	"strconv"

	"github.com/dhstore/dhstore/hash"
)

// MaxDepth bounds dict/list nesting to keep the cost of adversarial
// input bounded (spec.md §4.2).
const MaxDepth = 32

// rawKind tags the four grammar productions a decoder can see at any
// position, before they're coerced into a Property or an ObjectData.
type rawKind int

const (
	rawString rawKind = iota
	rawInteger
	rawDict
	rawList
)

type rawEntry struct {
	key string
	val rawValue
}

type rawValue struct {
	kind    rawKind
	str     string
	integer int64
	dict    []rawEntry
	list    []rawValue
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) eof() bool { return r.pos >= len(r.data) }

func (r *reader) peek() (byte, bool) {
	if r.eof() {
		return 0, false
	}
	return r.data[r.pos], true
}

// parseRaw parses one grammar value starting at r.pos, at nesting
// depth. It is the only function that touches grammar tokens directly;
// everything else works on rawValue/Property/ObjectData.
func parseRaw(r *reader, depth int) (rawValue, error) {
	if depth > MaxDepth {
		return rawValue{}, decodeErr(DepthExceeded, "nesting too deep")
	}
	b, ok := r.peek()
	if !ok {
		return rawValue{}, decodeErr(UnexpectedEOF, "expected a value")
	}
	switch {
	case b == 'i':
		return parseInteger(r)
	case b == 'd':
		return parseDict(r, depth)
	case b == 'l':
		return parseList(r, depth)
	case b >= '0' && b <= '9':
		return parseString(r)
	default:
		return rawValue{}, decodeErr(ParseError, "unexpected token byte")
	}
}

func parseInteger(r *reader) (rawValue, error) {
	r.pos++ // consume 'i'
	start := r.pos
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated integer")
		}
		if b == 'e' {
			break
		}
		r.pos++
	}
	digits := string(r.data[start:r.pos])
	r.pos++ // consume 'e'

	if digits == "" {
		return rawValue{}, decodeErr(ParseError, "empty integer")
	}
	if digits == "-0" {
		return rawValue{}, decodeErr(ParseError, "negative zero is not canonical")
	}
	neg := digits[0] == '-'
	mantissa := digits
	if neg {
		mantissa = digits[1:]
	}
	if mantissa == "" || (len(mantissa) > 1 && mantissa[0] == '0') {
		return rawValue{}, decodeErr(ParseError, "non-canonical leading zero")
	}
	for _, c := range mantissa {
		if c < '0' || c > '9' {
			return rawValue{}, decodeErr(ParseError, "non-digit in integer")
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return rawValue{}, decodeErr(ParseError, "integer out of range")
	}
	return rawValue{kind: rawInteger, integer: n}, nil
}

func parseString(r *reader) (rawValue, error) {
	start := r.pos
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated string length")
		}
		if b == ':' {
			break
		}
		if b < '0' || b > '9' {
			return rawValue{}, decodeErr(ParseError, "bad string length")
		}
		r.pos++
	}
	lenDigits := string(r.data[start:r.pos])
	r.pos++ // consume ':'
	if len(lenDigits) > 1 && lenDigits[0] == '0' {
		return rawValue{}, decodeErr(ParseError, "non-canonical string length")
	}
	n, err := strconv.Atoi(lenDigits)
	if err != nil || n < 0 {
		return rawValue{}, decodeErr(ParseError, "bad string length")
	}
	// Compare against the remaining input length rather than
	// r.pos+n > len(r.data): for an adversarial n close to MaxInt,
	// r.pos+n overflows and wraps negative, which would bypass the
	// bound and panic on the slice below.
	remaining := len(r.data) - r.pos
	if n > remaining {
		return rawValue{}, decodeErr(UnexpectedEOF, "truncated string")
	}
	s := string(r.data[r.pos : r.pos+n])
	r.pos += n
	return rawValue{kind: rawString, str: s}, nil
}

func parseDict(r *reader, depth int) (rawValue, error) {
	r.pos++ // consume 'd'
	var entries []rawEntry
	var lastKey string
	haveLast := false
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated dict")
		}
		if b == 'e' {
			r.pos++
			break
		}
		keyRaw, err := parseRaw(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		if keyRaw.kind != rawString {
			return rawValue{}, decodeErr(NonBytesKey, "dict key is not a string")
		}
		val, err := parseRaw(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		if haveLast {
			if keyRaw.str == lastKey {
				return rawValue{}, decodeErr(DuplicatedKey, keyRaw.str)
			}
			if keyRaw.str < lastKey {
				return rawValue{}, decodeErr(OutOfOrderKey, keyRaw.str)
			}
		}
		lastKey, haveLast = keyRaw.str, true
		entries = append(entries, rawEntry{key: keyRaw.str, val: val})
	}
	return rawValue{kind: rawDict, dict: entries}, nil
}

func parseList(r *reader, depth int) (rawValue, error) {
	r.pos++ // consume 'l'
	var items []rawValue
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated list")
		}
		if b == 'e' {
			r.pos++
			break
		}
		v, err := parseRaw(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		items = append(items, v)
	}
	return rawValue{kind: rawList, list: items}, nil
}

// parseDictPermissive is parseDict without the ascending-order check,
// used when Decode is called with strict=false.
func parseDictPermissive(r *reader, depth int) (rawValue, error) {
	r.pos++
	var entries []rawEntry
	seen := map[string]bool{}
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated dict")
		}
		if b == 'e' {
			r.pos++
			break
		}
		keyRaw, err := parseRawPermissive(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		if keyRaw.kind != rawString {
			return rawValue{}, decodeErr(NonBytesKey, "dict key is not a string")
		}
		val, err := parseRawPermissive(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		if seen[keyRaw.str] {
			return rawValue{}, decodeErr(DuplicatedKey, keyRaw.str)
		}
		seen[keyRaw.str] = true
		entries = append(entries, rawEntry{key: keyRaw.str, val: val})
	}
	return rawValue{kind: rawDict, dict: entries}, nil
}

func parseRawPermissive(r *reader, depth int) (rawValue, error) {
	if depth > MaxDepth {
		return rawValue{}, decodeErr(DepthExceeded, "nesting too deep")
	}
	b, ok := r.peek()
	if !ok {
		return rawValue{}, decodeErr(UnexpectedEOF, "expected a value")
	}
	switch {
	case b == 'i':
		return parseInteger(r)
	case b == 'd':
		return parseDictPermissive(r, depth)
	case b == 'l':
		return parseListPermissive(r, depth)
	case b >= '0' && b <= '9':
		return parseString(r)
	default:
		return rawValue{}, decodeErr(ParseError, "unexpected token byte")
	}
}

func parseListPermissive(r *reader, depth int) (rawValue, error) {
	r.pos++
	var items []rawValue
	for {
		b, ok := r.peek()
		if !ok {
			return rawValue{}, decodeErr(UnexpectedEOF, "unterminated list")
		}
		if b == 'e' {
			r.pos++
			break
		}
		v, err := parseRawPermissive(r, depth+1)
		if err != nil {
			return rawValue{}, err
		}
		items = append(items, v)
	}
	return rawValue{kind: rawList, list: items}, nil
}

// refLikeProperty recognizes the single-item-dict wrapper spec.md §4.2
// defines for Reference/Blob properties: {"ref": "<44 chars>"} or
// {"blob": "<44 chars>"}.
func refLikeProperty(v rawValue) (Property, bool, error) {
	if len(v.dict) != 1 {
		return Property{}, false, nil
	}
	e := v.dict[0]
	if e.val.kind != rawString || len(e.val.str) != hash.StringLen {
		return Property{}, false, nil
	}
	h, ok := hash.MaybeParse(e.val.str)
	if !ok {
		return Property{}, false, nil
	}
	switch e.key {
	case "ref":
		return Reference(h), true, nil
	case "blob":
		return Blob(h), true, nil
	default:
		return Property{}, false, nil
	}
}

func rawToProperty(v rawValue) (Property, error) {
	switch v.kind {
	case rawString:
		return String(v.str), nil
	case rawInteger:
		return Integer(v.integer), nil
	case rawDict:
		if p, ok, err := refLikeProperty(v); err != nil {
			return Property{}, err
		} else if ok {
			return p, nil
		}
		return Property{}, decodeErr(ParseError, "dict is not a valid ref/blob property")
	case rawList:
		return Property{}, decodeErr(ParseError, "list is not a valid property value")
	default:
		return Property{}, decodeErr(ParseError, "unknown value kind")
	}
}

func rawToObjectData(v rawValue) (ObjectData, error) {
	switch v.kind {
	case rawDict:
		entries := make(map[string]Property, len(v.dict))
		for _, e := range v.dict {
			p, err := rawToProperty(e.val)
			if err != nil {
				return ObjectData{}, err
			}
			entries[e.key] = p
		}
		return DictData(NewDict(entries)), nil
	case rawList:
		items := make([]Property, len(v.list))
		for i, e := range v.list {
			p, err := rawToProperty(e)
			if err != nil {
				return ObjectData{}, err
			}
			items[i] = p
		}
		return ListData(NewList(items...)), nil
	default:
		return ObjectData{}, decodeErr(ParseError, "top-level value must be a dict or a list")
	}
}

// DecodeObjectData parses the canonical encoding of an ObjectData (no
// envelope). In strict mode (used by the object index bootstrap, P3)
// out-of-order dict keys are rejected; permissive mode accepts them,
// for repair tooling that reads possibly-foreign input. Either way the
// resulting Dict iterates its keys in ascending order.
func DecodeObjectData(data []byte, strict bool) (ObjectData, error) {
	r := &reader{data: data}
	var v rawValue
	var err error
	if strict {
		v, err = parseRaw(r, 0)
	} else {
		v, err = parseRawPermissive(r, 0)
	}
	if err != nil {
		return ObjectData{}, err
	}
	if !r.eof() {
		return ObjectData{}, decodeErr(TrailingTokens, "bytes remain after top-level value")
	}
	return rawToObjectData(v)
}

// DecodeFile parses a full on-disk object file: the magic envelope
// wrapping the canonical ObjectData encoding under key "r". A bad
// magic value is reported as a ParseError here; the caller (the object
// index) is responsible for upgrading that into a CorruptedStoreError
// together with the offending path, per spec.md §7.
func DecodeFile(data []byte, strict bool) (ObjectData, error) {
	r := &reader{data: data}
	var v rawValue
	var err error
	if strict {
		v, err = parseRaw(r, 0)
	} else {
		v, err = parseRawPermissive(r, 0)
	}
	if err != nil {
		return ObjectData{}, err
	}
	if !r.eof() {
		return ObjectData{}, decodeErr(TrailingTokens, "bytes remain after top-level value")
	}
	if v.kind != rawDict || len(v.dict) != 2 {
		return ObjectData{}, decodeErr(ParseError, "missing object file envelope")
	}
	magic, content := v.dict[0], v.dict[1]
	if magic.key != fileMagicKey || magic.val.kind != rawString || magic.val.str != fileMagicValue {
		return ObjectData{}, decodeErr(ParseError, "bad magic in object file")
	}
	if content.key != fileContentKey {
		return ObjectData{}, decodeErr(ParseError, "missing object file content key")
	}
	return rawToObjectData(content.val)
}
