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
package metainfo

import "fmt"

// Reason enumerates the ways a decoded bencode value can fail structural
// validation as a torrent metainfo dictionary.
type Reason string

// The fixed set of validation failure reasons.
const (
	ReasonMissingField    Reason = "missing_field"
	ReasonWrongType       Reason = "wrong_type"
	ReasonAmbiguousLength Reason = "ambiguous_length"
	ReasonEmptyPath       Reason = "empty_path"
	ReasonBadPieceLength  Reason = "bad_piece_length"
)

// MalformedMetainfo is returned by Validate when a decoded bencode value
// does not have the shape required of a torrent metainfo dictionary.
type MalformedMetainfo struct {
	Reason Reason
	Detail string
}

func (e MalformedMetainfo) Error() string {
	return fmt.Sprintf("malformed metainfo (%s): %s", e.Reason, e.Detail)
}
