package codec

import (
	"bytes"
	"strconv"

	"github.com/dhstore/dhstore/hash"
)

// objectDomainSeparator prefixes the canonical encoding before hashing,
// so an object's digest preimage can never collide with a blob's (a
// blob's preimage is its bytes, unprefixed).
const objectDomainSeparator = "object\n"

// fileMagicKey and fileMagicValue form the envelope every on-disk
// object file is wrapped in: spec.md §4.2's
// "d1:d12:dhstore_00011:r<ObjectData>e". DecodeFile reports a
// mismatched magic value as a ParseError; the object index turns it
// into store corruption.
const fileMagicKey = "d"
const fileMagicValue = "dhstore_0001"
const fileContentKey = "r"

// Digest computes H("object\n" ‖ canonical-encoding(data)).
func Digest(data ObjectData) hash.Hash {
	return hash.Of(append([]byte(objectDomainSeparator), CanonicalEncode(data)...))
}

// CanonicalEncode renders data in the canonical grammar, with no
// envelope and no domain separator: this is the exact byte sequence
// that gets domain-separated and hashed, and that gets wrapped in the
// on-disk envelope by EncodeFile.
func CanonicalEncode(data ObjectData) []byte {
	var buf bytes.Buffer
	writeObjectData(&buf, data)
	return buf.Bytes()
}

// EncodeFile renders data as the full on-disk object file: the
// canonical encoding of data wrapped in the magic envelope.
func EncodeFile(data ObjectData) []byte {
	var buf bytes.Buffer
	buf.WriteByte('d')
	writeString(&buf, fileMagicKey)
	writeString(&buf, fileMagicValue)
	writeString(&buf, fileContentKey)
	writeObjectData(&buf, data)
	buf.WriteByte('e')
	return buf.Bytes()
}

func writeObjectData(buf *bytes.Buffer, data ObjectData) {
	switch data.Kind {
	case KindDict:
		buf.WriteByte('d')
		for _, e := range data.Dict.Entries() {
			writeString(buf, e.Key)
			writeProperty(buf, e.Value)
		}
		buf.WriteByte('e')
	case KindList:
		buf.WriteByte('l')
		for _, item := range data.List.Items {
			writeProperty(buf, item)
		}
		buf.WriteByte('e')
	}
}

func writeProperty(buf *bytes.Buffer, p Property) {
	switch p.Kind() {
	case KindString:
		s, _ := p.AsString()
		writeString(buf, s)
	case KindInteger:
		n, _ := p.AsInteger()
		writeInteger(buf, n)
	case KindReference:
		h, _ := p.AsReference()
		writeRefLike(buf, "ref", h)
	case KindBlob:
		h, _ := p.AsBlob()
		writeRefLike(buf, "blob", h)
	}
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(strconv.Itoa(len(s)))
	buf.WriteByte(':')
	buf.WriteString(s)
}

func writeInteger(buf *bytes.Buffer, n int64) {
	buf.WriteByte('i')
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteByte('e')
}

func writeRefLike(buf *bytes.Buffer, key string, h hash.Hash) {
	buf.WriteByte('d')
	writeString(buf, key)
	writeString(buf, h.String())
	buf.WriteByte('e')
}
