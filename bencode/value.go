// Copyright (c) 2016-2019 Uber Technologies, Inc.
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

// Package bencode implements the bencode wire format used by .torrent
// metainfo files: a self-describing binary encoding with four value
// shapes (integer, byte-string, list, map). Maps are canonically ordered
// by key, ascending.
package bencode

import "sort"

// Kind discriminates the four bencode value shapes.
type Kind int

// The four bencode value kinds.
const (
	KindInt Kind = iota
	KindBytes
	KindList
	KindMap
)

// Value is a dynamically-typed bencode value. Exactly one of Int, Bytes,
// List, or Map is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Int   int64
	Bytes []byte
	List  []*Value
	Map   *OrderedMap
}

// NewInt wraps i as a bencode integer value.
func NewInt(i int64) *Value {
	return &Value{Kind: KindInt, Int: i}
}

// NewBytes wraps b as a bencode byte-string value.
func NewBytes(b []byte) *Value {
	return &Value{Kind: KindBytes, Bytes: b}
}

// NewString wraps s as a bencode byte-string value.
func NewString(s string) *Value {
	return NewBytes([]byte(s))
}

// NewList wraps items as a bencode list value.
func NewList(items ...*Value) *Value {
	return &Value{Kind: KindList, List: items}
}

// NewMap wraps m as a bencode map value.
func NewMap(m *OrderedMap) *Value {
	return &Value{Kind: KindMap, Map: m}
}

// AsInt returns v's integer payload, or ok=false if v is not an integer.
func (v *Value) AsInt() (int64, bool) {
	if v == nil || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// AsBytes returns v's byte-string payload, or ok=false if v is not one.
func (v *Value) AsBytes() ([]byte, bool) {
	if v == nil || v.Kind != KindBytes {
		return nil, false
	}
	return v.Bytes, true
}

// AsString is a convenience wrapper around AsBytes.
func (v *Value) AsString() (string, bool) {
	b, ok := v.AsBytes()
	if !ok {
		return "", false
	}
	return string(b), true
}

// AsList returns v's list payload, or ok=false if v is not a list.
func (v *Value) AsList() ([]*Value, bool) {
	if v == nil || v.Kind != KindList {
		return nil, false
	}
	return v.List, true
}

// AsMap returns v's map payload, or ok=false if v is not a map.
func (v *Value) AsMap() (*OrderedMap, bool) {
	if v == nil || v.Kind != KindMap {
		return nil, false
	}
	return v.Map, true
}

// OrderedMap is a bencode map. Keys are byte-strings; canonical ascending
// order is computed on demand by SortedKeys rather than maintained as an
// insertion invariant, since decode already produces ascending order and
// encode only cares about the order at serialization time.
type OrderedMap struct {
	vals map[string]*Value
	keys []string // insertion order, recorded by Set; nothing in this package reads it
}

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{vals: make(map[string]*Value)}
}

// Set inserts or overwrites the value for key.
func (m *OrderedMap) Set(key string, v *Value) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = v
}

// Get returns the value for key, or ok=false if absent.
func (m *OrderedMap) Get(key string) (*Value, bool) {
	v, ok := m.vals[key]
	return v, ok
}

// Len returns the number of entries in m.
func (m *OrderedMap) Len() int {
	return len(m.vals)
}

// SortedKeys returns m's keys in canonical ascending byte order.
func (m *OrderedMap) SortedKeys() []string {
	keys := make([]string, 0, len(m.vals))
	for k := range m.vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
