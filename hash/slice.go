// Copyright 2019 Liquidata, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0

package hash

// HashSlice is a sortable slice of Hash values.
type HashSlice []Hash

func (hs HashSlice) Len() int           { return len(hs) }
func (hs HashSlice) Less(i, j int) bool { return hs[i].Less(hs[j]) }
func (hs HashSlice) Swap(i, j int)      { hs[i], hs[j] = hs[j], hs[i] }

// Equals reports whether hs and other contain the same hashes in the
// same order.
func (hs HashSlice) Equals(other HashSlice) bool {
	if len(hs) != len(other) {
		return false
	}
	for i := range hs {
		if hs[i] != other[i] {
			return false
		}
	}
	return true
}

// Set is an unordered set of Hash values.
type Set map[Hash]struct{}

// NewSet builds a Set from the given hashes.
func NewSet(hs ...Hash) Set {
	s := make(Set, len(hs))
	for _, h := range hs {
		s[h] = struct{}{}
	}
	return s
}

// Insert adds h to the set.
func (s Set) Insert(h Hash) { s[h] = struct{}{} }

// Has reports whether h is in the set.
func (s Set) Has(h Hash) bool {
	_, ok := s[h]
	return ok
}

// Remove deletes h from the set, if present.
func (s Set) Remove(h Hash) { delete(s, h) }

// ToSlice returns the set's elements in no particular order.
func (s Set) ToSlice() HashSlice {
	out := make(HashSlice, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	return out
}
