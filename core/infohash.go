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
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// InfoHash is the 20-byte SHA-1 digest of the canonical bytes of a torrent's
// info dictionary. It is the authoritative identifier for a torrent.
type InfoHash [20]byte

// NewInfoHashFromHex converts a hexadecimal string into an InfoHash.
func NewInfoHashFromHex(s string) (InfoHash, error) {
	if len(s) != 40 {
		return InfoHash{}, fmt.Errorf("invalid hash: expected 40 characters, got %d", len(s))
	}
	var h InfoHash
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil {
		return InfoHash{}, fmt.Errorf("invalid hex: %s", err)
	}
	if n != 20 {
		return InfoHash{}, fmt.Errorf("invariant violation: expected 20 bytes, got %d", n)
	}
	return h, nil
}

// NewInfoHashFromBytes hashes raw into an InfoHash. raw must be the
// canonical bencoded bytes of an info dictionary, not a re-encoding of its
// decoded form, or the hash will not match what peers expect.
func NewInfoHashFromBytes(raw []byte) InfoHash {
	var h InfoHash
	hasher := sha1.New()
	hasher.Write(raw)
	copy(h[:], hasher.Sum(nil))
	return h
}

// Bytes converts h to raw bytes.
func (h InfoHash) Bytes() []byte {
	return h[:]
}

// Hex converts h into a hexadecimal string.
func (h InfoHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h InfoHash) String() string {
	return h.Hex()
}

// Zero reports whether h is the zero-value hash, i.e. never set.
func (h InfoHash) Zero() bool {
	return h == InfoHash{}
}

// MarshalText implements encoding.TextMarshaler, letting InfoHash serve
// as a JSON object key and marshal as its hex string elsewhere.
func (h InfoHash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *InfoHash) UnmarshalText(text []byte) error {
	decoded, err := NewInfoHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}
