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

import "fmt"

// MalformedEncoding is returned by Decode and DecodeWithRawInfo when the
// input does not conform to the bencode grammar or to the canonical-form
// rules this package enforces on decode (ascending, byte-string map keys;
// no leading zeros in integers).
type MalformedEncoding struct {
	Offset int
	Reason string
}

func (e MalformedEncoding) Error() string {
	return fmt.Sprintf("malformed bencode at offset %d: %s", e.Offset, e.Reason)
}
