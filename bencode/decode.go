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
package bencode

import (
	"strconv"
)

// decoder walks data with a single cursor. It never backtracks, so Decode
// is linear in len(data).
type decoder struct {
	data []byte
	pos  int

	// captureKey, when non-empty, names a key of the root-level map whose
	// value's raw byte range should be recorded into captured as the
	// decode passes over it. This is how DecodeWithRawInfo recovers the
	// exact bytes of the info sub-dictionary without a second pass.
	captureKey string
	captured   []byte

	depth int
}

// Decode parses the single bencode value encoded in data. It fails if
// there are any bytes left over after the value, or if the input violates
// canonical-form rules (unordered or non-byte-string map keys, integers
// with leading zeros or a "-0").
func Decode(data []byte) (*Value, error) {
	v, _, err := decodeAll(data, "")
	return v, err
}

// DecodeWithRawInfo parses data exactly as Decode does, additionally
// returning the raw bencoded bytes of the value stored under the "info"
// key of the root dictionary. The returned slice is the exact byte range
// as it appeared in data, suitable for feeding to an infohash digest;
// re-encoding the decoded Value is not equivalent, since formatting the
// decoder tolerates but Encode does not reproduce (such as a zero-padded
// length prefix like "04:spam") would change the hash.
//
// If data's root value is not a map, or has no "info" key, the returned
// slice is nil and an error is returned.
func DecodeWithRawInfo(data []byte) (*Value, []byte, error) {
	v, info, err := decodeAll(data, "info")
	if err != nil {
		return nil, nil, err
	}
	if info == nil {
		return nil, nil, MalformedEncoding{Reason: `root value has no "info" key`}
	}
	return v, info, nil
}

func decodeAll(data []byte, captureKey string) (*Value, []byte, error) {
	d := &decoder{data: data, captureKey: captureKey}
	v, err := d.decodeValue()
	if err != nil {
		return nil, nil, err
	}
	if d.pos != len(d.data) {
		return nil, nil, MalformedEncoding{Offset: d.pos, Reason: "trailing bytes after root value"}
	}
	return v, d.captured, nil
}

func (d *decoder) errf(reason string) error {
	return MalformedEncoding{Offset: d.pos, Reason: reason}
}

func (d *decoder) decodeValue() (*Value, error) {
	if d.pos >= len(d.data) {
		return nil, d.errf("unexpected end of input")
	}
	switch c := d.data[d.pos]; {
	case c == 'i':
		return d.decodeInt()
	case c == 'l':
		return d.decodeList()
	case c == 'd':
		return d.decodeMap()
	case c >= '0' && c <= '9':
		return d.decodeBytes()
	default:
		return nil, d.errf("unrecognized value prefix " + strconv.QuoteRune(rune(c)))
	}
}

func (d *decoder) decodeInt() (*Value, error) {
	start := d.pos
	d.pos++ // consume 'i'

	digitsStart := d.pos
	if d.pos < len(d.data) && d.data[d.pos] == '-' {
		d.pos++
	}
	if d.pos >= len(d.data) || d.data[d.pos] < '0' || d.data[d.pos] > '9' {
		return nil, d.errf("integer has no digits")
	}
	negative := d.data[digitsStart] == '-'
	numStart := digitsStart
	if negative {
		numStart++
	}
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		d.pos++
	}
	numEnd := d.pos
	if d.pos >= len(d.data) || d.data[d.pos] != 'e' {
		return nil, d.errf("integer missing terminating 'e'")
	}

	numText := string(d.data[numStart:numEnd])
	if numText == "" {
		return nil, d.errf("integer has no digits")
	}
	if numText == "0" {
		// fine: the canonical zero.
	} else if numText[0] == '0' {
		return nil, d.errf("integer has a leading zero")
	}
	if negative && numText == "0" {
		return nil, d.errf(`integer "-0" is not canonical`)
	}

	n, err := strconv.ParseInt(string(d.data[digitsStart:numEnd]), 10, 64)
	if err != nil {
		return nil, MalformedEncoding{Offset: start, Reason: "integer overflows 64 bits: " + err.Error()}
	}
	d.pos++ // consume 'e'
	return NewInt(n), nil
}

// decodeLength parses the decimal length prefix of a byte-string, stopping
// at and consuming the following ':'.
func (d *decoder) decodeLength() (int, error) {
	start := d.pos
	for d.pos < len(d.data) && d.data[d.pos] >= '0' && d.data[d.pos] <= '9' {
		d.pos++
	}
	if d.pos == start {
		return 0, d.errf("byte-string missing length prefix")
	}
	if d.pos >= len(d.data) || d.data[d.pos] != ':' {
		return 0, d.errf("byte-string length missing terminating ':'")
	}
	n, err := strconv.ParseInt(string(d.data[start:d.pos]), 10, 63)
	if err != nil {
		return 0, MalformedEncoding{Offset: start, Reason: "byte-string length overflows: " + err.Error()}
	}
	d.pos++ // consume ':'
	return int(n), nil
}

func (d *decoder) decodeBytes() (*Value, error) {
	n, err := d.decodeLength()
	if err != nil {
		return nil, err
	}
	if n < 0 || d.pos+n > len(d.data) {
		return nil, d.errf("byte-string length exceeds remaining input")
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return NewBytes(b), nil
}

func (d *decoder) decodeList() (*Value, error) {
	d.pos++ // consume 'l'
	d.depth++
	var items []*Value
	for {
		if d.pos >= len(d.data) {
			return nil, d.errf("list missing terminating 'e'")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			break
		}
		item, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	d.depth--
	return &Value{Kind: KindList, List: items}, nil
}

func (d *decoder) decodeMap() (*Value, error) {
	d.pos++ // consume 'd'
	d.depth++
	isRoot := d.depth == 1

	om := NewOrderedMap()
	lastKey := ""
	haveLast := false
	for {
		if d.pos >= len(d.data) {
			return nil, d.errf("map missing terminating 'e'")
		}
		if d.data[d.pos] == 'e' {
			d.pos++
			break
		}
		if d.data[d.pos] < '0' || d.data[d.pos] > '9' {
			return nil, d.errf("map key is not a byte-string")
		}
		keyVal, err := d.decodeBytes()
		if err != nil {
			return nil, err
		}
		key := string(keyVal.Bytes)
		if haveLast && key <= lastKey {
			return nil, d.errf("map keys are not in strictly ascending order")
		}
		lastKey, haveLast = key, true

		valueStart := d.pos
		val, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		if isRoot && d.captureKey != "" && key == d.captureKey {
			d.captured = append([]byte(nil), d.data[valueStart:d.pos]...)
		}
		om.Set(key, val)
	}
	d.depth--
	return &Value{Kind: KindMap, Map: om}, nil
}
