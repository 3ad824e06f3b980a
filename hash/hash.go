// Copyright 2019 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package hash implements the dhstore digest: a 32-byte BLAKE2b-256 value
// identifying an object or a blob by its content. Its canonical textual
// form is a 44-character string over the URL-safe base64 alphabet with a
// leading 6-bit type/version tag.
package hash

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	gohash "hash"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/dhstore/dhstore/dherr"
)

// ByteLen is the width of a digest in raw bytes.
const ByteLen = 32

// typeTag is the 6-bit type/version tag prepended to every digest's
// textual encoding. 12 is the constant value reserved for the
// object/blob namespace.
const typeTag = 12

// StringLen is the length of the canonical textual encoding: one tag
// byte plus ByteLen content bytes, base64 (unpadded) encodes to exactly
// this many characters.
const StringLen = 44

// legacyHexLen is the length of the legacy hexadecimal textual form,
// accepted on read for interoperability with older stores but never
// emitted (spec.md §9 open question).
const legacyHexLen = 64

// Hash is a fixed-width content digest. The zero value is the empty
// hash, used as a sentinel (e.g. an unset root) and never a real digest
// value, since Of("") still hashes to a non-zero digest.
type Hash [ByteLen]byte

var emptyHash = Hash{}

// Of computes the digest of data.
func Of(data []byte) Hash {
	sum := blake2b.Sum256(data)
	return Hash(sum)
}

// IsEmpty reports whether h is the zero value.
func (h Hash) IsEmpty() bool {
	return h == emptyHash
}

// Less reports whether h sorts strictly before other, by raw byte value.
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// Compare returns -1, 0 or 1 as h is less than, equal to, or greater
// than other, by raw byte value.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// String renders h in its canonical 44-character textual form.
func (h Hash) String() string {
	buf := make([]byte, ByteLen+1)
	buf[0] = typeTag
	copy(buf[1:], h[:])
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(buf)
}

// Parse decodes s into a Hash, panicking if s is not a well-formed
// canonical (or legacy hex) digest. Intended for fixed test data and
// other call sites that already know s is well-formed; callers handling
// untrusted input must use MaybeParse.
func Parse(s string) Hash {
	h, ok := MaybeParse(s)
	if !ok {
		panic("invalid hash: " + s)
	}
	return h
}

// MaybeParse decodes s into a Hash, reporting false instead of panicking
// on any malformed input: wrong length, characters outside the
// alphabet, or (for the canonical form) a type byte other than 12.
func MaybeParse(s string) (Hash, bool) {
	switch len(s) {
	case StringLen:
		return parseCanonical(s)
	case legacyHexLen:
		return parseLegacyHex(s)
	default:
		return emptyHash, false
	}
}

func parseCanonical(s string) (Hash, bool) {
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil || len(raw) != ByteLen+1 {
		return emptyHash, false
	}
	if raw[0] != typeTag {
		return emptyHash, false
	}
	var h Hash
	copy(h[:], raw[1:])
	return h, true
}

func parseLegacyHex(s string) (Hash, bool) {
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil || len(raw) != ByteLen {
		return emptyHash, false
	}
	var h Hash
	copy(h[:], raw)
	return h, true
}

// ParseStrict is like MaybeParse but returns a dherr.InvalidInputError
// instead of a boolean, for call sites that want to propagate a
// caller-facing error.
func ParseStrict(s string) (Hash, error) {
	h, ok := MaybeParse(s)
	if !ok {
		return emptyHash, dherr.InvalidInput("not a valid digest: %q", s)
	}
	return h, nil
}

// Writer incrementally hashes bytes written to it, for callers that
// would rather stream content than buffer it whole before calling Of.
// It implements io.Writer.
type Writer struct {
	state gohash.Hash
}

// NewWriter returns a ready-to-use streaming digest Writer.
func NewWriter() *Writer {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only a bad key size makes New256 fail; a nil key never does.
		panic(err)
	}
	return &Writer{state: h}
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.state.Write(p)
}

// Sum returns the digest of everything written so far, without
// resetting the writer's state.
func (w *Writer) Sum() Hash {
	var h Hash
	copy(h[:], w.state.Sum(nil))
	return h
}
