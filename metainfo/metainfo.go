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

// Package metainfo validates decoded bencode values as torrent metainfo
// dictionaries and extracts the fields the scanner publishes downstream.
package metainfo

import (
	"path/filepath"

	"github.com/uber/torrentd/bencode"
	"github.com/uber/torrentd/core"
)

// TorrentRecord is the scanner's published view of one torrent file: the
// fields a downstream swarm registry needs, plus enough of the raw
// metainfo to answer follow-up questions without re-parsing.
type TorrentRecord struct {
	Path           string
	FileName       string
	NumFiles       int
	TotalLength    int64
	DisplayName    string
	FailureReason  string
	WarningMessage string
	AnnounceList   [][]string
	InfoHash       core.InfoHash
	Metainfo       *bencode.Value
}

// Extract validates v and builds the TorrentRecord for the .torrent file
// at path, whose info sub-value hashes to hash. Extract returns the same
// MalformedMetainfo errors as Validate.
func Extract(path string, v *bencode.Value, hash core.InfoHash) (*TorrentRecord, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}

	root, _ := v.AsMap()
	info, _ := root.Get("info")
	infoMap, _ := info.AsMap()

	name, _ := infoMap.Get("name")
	nameStr, _ := name.AsString()

	fileName := filepath.Base(path)
	displayName := nameStr
	if displayName == "" {
		displayName = fileName
	}

	numFiles, totalLength := singleOrMultiFile(infoMap)

	rec := &TorrentRecord{
		Path:        path,
		FileName:    fileName,
		NumFiles:    numFiles,
		TotalLength: totalLength,
		DisplayName: displayName,
		InfoHash:    hash,
		Metainfo:    v,
	}

	if fr, ok := root.Get("failure reason"); ok {
		rec.FailureReason, _ = fr.AsString()
	}
	if wm, ok := root.Get("warning message"); ok {
		rec.WarningMessage, _ = wm.AsString()
	}
	if al, ok := root.Get("announce-list"); ok {
		rec.AnnounceList = extractAnnounceList(al)
	}

	return rec, nil
}

func singleOrMultiFile(info *bencode.OrderedMap) (numFiles int, totalLength int64) {
	if lv, ok := info.Get("length"); ok {
		n, _ := lv.AsInt()
		return 1, n
	}
	filesVal, _ := info.Get("files")
	files, _ := filesVal.AsList()
	var total int64
	for _, f := range files {
		fm, _ := f.AsMap()
		lv, _ := fm.Get("length")
		n, _ := lv.AsInt()
		total += n
	}
	return len(files), total
}

func extractAnnounceList(v *bencode.Value) [][]string {
	tiers, ok := v.AsList()
	if !ok {
		return nil
	}
	out := make([][]string, 0, len(tiers))
	for _, tier := range tiers {
		urls, ok := tier.AsList()
		if !ok {
			continue
		}
		tierOut := make([]string, 0, len(urls))
		for _, u := range urls {
			s, ok := u.AsString()
			if !ok {
				continue
			}
			tierOut = append(tierOut, s)
		}
		out = append(out, tierOut)
	}
	return out
}
