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

import "github.com/uber/torrentd/bencode"

// singleFileFixture returns the bencoded bytes of a minimal valid
// single-file torrent with the given name and length.
func singleFileFixture(name string, length int64) []byte {
	info := bencode.NewOrderedMap()
	info.Set("piece length", bencode.NewInt(16384))
	info.Set("pieces", bencode.NewBytes(make([]byte, 20)))
	info.Set("name", bencode.NewString(name))
	info.Set("length", bencode.NewInt(length))

	root := bencode.NewOrderedMap()
	root.Set("info", bencode.NewMap(info))

	b, err := bencode.Encode(bencode.NewMap(root))
	if err != nil {
		panic(err)
	}
	return b
}

// multiFileFixture returns the bencoded bytes of a minimal valid
// multi-file torrent.
func multiFileFixture(name string, fileLengths ...int64) []byte {
	var files []*bencode.Value
	for i, length := range fileLengths {
		fm := bencode.NewOrderedMap()
		fm.Set("length", bencode.NewInt(length))
		fm.Set("path", bencode.NewList(bencode.NewString(pathComponent(i))))
		files = append(files, bencode.NewMap(fm))
	}

	info := bencode.NewOrderedMap()
	info.Set("piece length", bencode.NewInt(16384))
	info.Set("pieces", bencode.NewBytes(make([]byte, 40)))
	info.Set("name", bencode.NewString(name))
	info.Set("files", bencode.NewList(files...))

	root := bencode.NewOrderedMap()
	root.Set("info", bencode.NewMap(info))

	b, err := bencode.Encode(bencode.NewMap(root))
	if err != nil {
		panic(err)
	}
	return b
}

func pathComponent(i int) string {
	names := []string{"part0.bin", "part1.bin", "part2.bin"}
	if i < len(names) {
		return names[i]
	}
	return "extra.bin"
}
