// Copyright 2019 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0

package hash

import (
	"encoding/hex"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaybeParseRoundTrip(t *testing.T) {
	assert := assert.New(t)

	h := Of([]byte("abc"))
	s := h.String()
	assert.Len(s, StringLen)

	parsed, ok := MaybeParse(s)
	assert.True(ok)
	assert.Equal(h, parsed)
}

func TestMaybeParseRejectsGarbage(t *testing.T) {
	assert := assert.New(t)

	parse := func(s string, success bool) {
		_, ok := MaybeParse(s)
		assert.Equal(success, ok, "expected success=%t for %q", success, s)
	}

	parse("", false)
	parse("foo", false)
	parse("not even close to the right length of input", false)
	// right length, but the type tag byte won't decode to 12.
	parse("____________________________________________", false)
}

func TestParsePanicsOnGarbage(t *testing.T) {
	assert.Panics(t, func() { Parse("foo") })
}

func TestLegacyHexRoundTrip(t *testing.T) {
	h := Of([]byte("legacy"))
	legacy := hex.EncodeToString(h[:])
	parsedLegacy, ok := MaybeParse(legacy)
	assert.True(t, ok)
	assert.Equal(t, h, parsedLegacy)
}

func TestEquals(t *testing.T) {
	assert := assert.New(t)

	h0 := Of([]byte("a"))
	h01 := Of([]byte("a"))
	h1 := Of([]byte("b"))

	assert.Equal(h0, h01)
	assert.NotEqual(h0, h1)
}

func TestIsEmpty(t *testing.T) {
	assert := assert.New(t)

	assert.True(Hash{}.IsEmpty())
	assert.False(Of([]byte("x")).IsEmpty())
}

func TestLessAndCompare(t *testing.T) {
	assert := assert.New(t)

	var lo, hi Hash
	lo[31] = 1
	hi[31] = 2

	assert.True(lo.Less(hi))
	assert.False(hi.Less(lo))
	assert.False(lo.Less(lo))

	assert.True(lo.Compare(hi) < 0)
	assert.True(hi.Compare(lo) > 0)
	assert.Equal(0, lo.Compare(lo))
}

func TestHashSliceSort(t *testing.T) {
	assert := assert.New(t)

	hs := HashSlice{Of([]byte("a")), Of([]byte("b")), Of([]byte("c"))}
	hs2 := make(HashSlice, len(hs))
	copy(hs2, hs)

	sort.Sort(sort.Reverse(hs2))
	assert.False(sort.IsSorted(hs2))

	sort.Sort(hs2)
	assert.True(sort.IsSorted(hs2))
}

func TestSet(t *testing.T) {
	assert := assert.New(t)

	h1, h2 := Of([]byte("1")), Of([]byte("2"))
	s := NewSet(h1)
	assert.True(s.Has(h1))
	assert.False(s.Has(h2))

	s.Insert(h2)
	assert.True(s.Has(h2))

	s.Remove(h1)
	assert.False(s.Has(h1))
	assert.Len(s.ToSlice(), 1)
}
