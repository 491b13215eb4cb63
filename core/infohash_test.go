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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfoHashFromBytesAndHex(t *testing.T) {
	require := require.New(t)

	h := NewInfoHashFromBytes([]byte("some info dictionary bytes"))
	require.Len(h.Bytes(), 20)

	h2, err := NewInfoHashFromHex(h.Hex())
	require.NoError(err)
	require.Equal(h, h2)
	require.Equal(h.String(), h2.String())
}

func TestInfoHashFromHexInvalid(t *testing.T) {
	tests := []struct {
		desc string
		hex  string
	}{
		{"too short", "abcd"},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"non hex chars", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			_, err := NewInfoHashFromHex(test.hex)
			require.Error(t, err)
		})
	}
}

func TestInfoHashDeterministic(t *testing.T) {
	require := require.New(t)

	raw := []byte("d4:name3:fooe")
	require.Equal(NewInfoHashFromBytes(raw), NewInfoHashFromBytes(raw))
	require.NotEqual(NewInfoHashFromBytes(raw), NewInfoHashFromBytes([]byte("different")))
}

func TestInfoHashZero(t *testing.T) {
	require := require.New(t)

	var h InfoHash
	require.True(h.Zero())

	h = NewInfoHashFromBytes([]byte("x"))
	require.False(h.Zero())
}
