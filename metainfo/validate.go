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

import (
	"fmt"

	"github.com/uber/torrentd/bencode"
)

// Validate checks that v has the structural shape of a torrent metainfo
// dictionary, per spec.md §4.2:
//
//   - the root is a map containing key "info" mapping to a map;
//   - "info" has a positive integer "piece length";
//   - "info" has a byte-string "pieces" whose length is a multiple of 20;
//   - "info" has a byte-string "name";
//   - "info" has exactly one of "length" (positive integer, single-file) or
//     "files" (non-empty list of maps, each with a non-negative "length"
//     and a non-empty "path" of non-empty byte-strings).
//
// Optional root keys "announce-list", "failure reason", and
// "warning message" are not validated here, only extracted by Extract.
func Validate(v *bencode.Value) error {
	root, ok := v.AsMap()
	if !ok {
		return MalformedMetainfo{ReasonWrongType, "root value is not a map"}
	}

	infoVal, ok := root.Get("info")
	if !ok {
		return MalformedMetainfo{ReasonMissingField, `root is missing key "info"`}
	}
	info, ok := infoVal.AsMap()
	if !ok {
		return MalformedMetainfo{ReasonWrongType, `"info" is not a map`}
	}

	if err := validatePieceLength(info); err != nil {
		return err
	}
	if err := validatePieces(info); err != nil {
		return err
	}
	if _, ok := requireBytes(info, "name"); ok != nil {
		return ok
	}

	return validateLengthOrFiles(info)
}

func validatePieceLength(info *bencode.OrderedMap) error {
	pl, ok := info.Get("piece length")
	if !ok {
		return MalformedMetainfo{ReasonMissingField, `info is missing "piece length"`}
	}
	n, ok := pl.AsInt()
	if !ok {
		return MalformedMetainfo{ReasonWrongType, `"piece length" is not an integer`}
	}
	if n <= 0 {
		return MalformedMetainfo{ReasonBadPieceLength, `"piece length" must be positive`}
	}
	return nil
}

func validatePieces(info *bencode.OrderedMap) error {
	pv, ok := info.Get("pieces")
	if !ok {
		return MalformedMetainfo{ReasonMissingField, `info is missing "pieces"`}
	}
	b, ok := pv.AsBytes()
	if !ok {
		return MalformedMetainfo{ReasonWrongType, `"pieces" is not a byte-string`}
	}
	if len(b)%20 != 0 {
		return MalformedMetainfo{ReasonBadPieceLength, `"pieces" length is not a multiple of 20`}
	}
	return nil
}

// requireBytes returns a non-nil error if info lacks key, or key is not a
// byte-string, and the value itself otherwise. Its only caller, Validate,
// ignores the returned *bencode.Value.
func requireBytes(info *bencode.OrderedMap, key string) (*bencode.Value, error) {
	v, ok := info.Get(key)
	if !ok {
		return nil, MalformedMetainfo{ReasonMissingField, fmt.Sprintf("info is missing %q", key)}
	}
	if _, ok := v.AsBytes(); !ok {
		return nil, MalformedMetainfo{ReasonWrongType, fmt.Sprintf("%q is not a byte-string", key)}
	}
	return v, nil
}

func validateLengthOrFiles(info *bencode.OrderedMap) error {
	lengthVal, hasLength := info.Get("length")
	filesVal, hasFiles := info.Get("files")

	switch {
	case hasLength && hasFiles:
		return MalformedMetainfo{ReasonAmbiguousLength, `info has both "length" and "files"`}
	case hasLength:
		n, ok := lengthVal.AsInt()
		if !ok {
			return MalformedMetainfo{ReasonWrongType, `"length" is not an integer`}
		}
		if n <= 0 {
			return MalformedMetainfo{ReasonWrongType, `"length" must be positive`}
		}
		return nil
	case hasFiles:
		return validateFiles(filesVal)
	default:
		return MalformedMetainfo{ReasonMissingField, `info has neither "length" nor "files"`}
	}
}

func validateFiles(filesVal *bencode.Value) error {
	files, ok := filesVal.AsList()
	if !ok {
		return MalformedMetainfo{ReasonWrongType, `"files" is not a list`}
	}
	if len(files) == 0 {
		return MalformedMetainfo{ReasonMissingField, `"files" must be non-empty`}
	}
	for i, fv := range files {
		fm, ok := fv.AsMap()
		if !ok {
			return MalformedMetainfo{ReasonWrongType, fmt.Sprintf("files[%d] is not a map", i)}
		}
		lv, ok := fm.Get("length")
		if !ok {
			return MalformedMetainfo{ReasonMissingField, fmt.Sprintf("files[%d] is missing \"length\"", i)}
		}
		n, ok := lv.AsInt()
		if !ok {
			return MalformedMetainfo{ReasonWrongType, fmt.Sprintf("files[%d].length is not an integer", i)}
		}
		if n < 0 {
			return MalformedMetainfo{ReasonWrongType, fmt.Sprintf("files[%d].length must be non-negative", i)}
		}
		pv, ok := fm.Get("path")
		if !ok {
			return MalformedMetainfo{ReasonMissingField, fmt.Sprintf("files[%d] is missing \"path\"", i)}
		}
		path, ok := pv.AsList()
		if !ok {
			return MalformedMetainfo{ReasonWrongType, fmt.Sprintf("files[%d].path is not a list", i)}
		}
		if len(path) == 0 {
			return MalformedMetainfo{ReasonEmptyPath, fmt.Sprintf("files[%d].path must be non-empty", i)}
		}
		for j, pc := range path {
			s, ok := pc.AsBytes()
			if !ok {
				return MalformedMetainfo{ReasonWrongType, fmt.Sprintf("files[%d].path[%d] is not a byte-string", i, j)}
			}
			if len(s) == 0 {
				return MalformedMetainfo{ReasonEmptyPath, fmt.Sprintf("files[%d].path[%d] must be non-empty", i, j)}
			}
		}
	}
	return nil
}
