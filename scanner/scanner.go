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
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uber/torrentd/bencode"
	"github.com/uber/torrentd/core"
	"github.com/uber/torrentd/metainfo"
)

// Scan walks root, reconciles what it finds against prev, and returns a
// fresh ScannerState along with the infohash-keyed delta of torrents
// added and removed since prev. prev is never mutated; pass
// NewScannerState() for a first scan. When includeMetainfo is false, the
// Metainfo field of returned TorrentRecords is cleared to save memory.
//
// Scan is deterministic given the same filesystem snapshot and prev, and
// idempotent: scanning again against its own output state produces empty
// added/removed maps so long as nothing on disk changed in between.
func Scan(
	root string,
	prev *ScannerState,
	sink ErrorSink,
	includeMetainfo bool,
) (*ScannerState, map[core.InfoHash]*metainfo.TorrentRecord, map[core.InfoHash]*metainfo.TorrentRecord) {
	if prev == nil {
		prev = NewScannerState()
	}

	discovered := discover(root, sink)

	newParsed := make(map[core.InfoHash]*metainfo.TorrentRecord)
	newFiles := make(map[string]FileEntry)
	newBlocked := make(map[string]struct{})
	added := make(map[core.InfoHash]*metainfo.TorrentRecord)
	removed := make(map[core.InfoHash]*metainfo.TorrentRecord)

	var toParse []string

	for p, fp := range discovered {
		old, existed := prev.Files[p]
		if !existed {
			toParse = append(toParse, p)
			continue
		}

		_, wasBlocked := prev.Blocked[p]

		if old.Fingerprint.Equal(fp) {
			if old.HasHash {
				if wasBlocked {
					// A conflicting duplicate may have vanished since the
					// last scan; give this path another chance.
					toParse = append(toParse, p)
				} else {
					newParsed[old.InfoHash] = prev.Parsed[old.InfoHash]
					newFiles[p] = old
				}
			} else {
				newBlocked[p] = struct{}{}
				newFiles[p] = old
			}
			continue
		}

		// Fingerprint changed: the file's content is new to us.
		if !wasBlocked && old.HasHash {
			if rec, ok := prev.Parsed[old.InfoHash]; ok {
				removed[old.InfoHash] = rec
			}
		}
		toParse = append(toParse, p)
	}

	sort.Strings(toParse)

	for _, p := range toParse {
		fp := discovered[p]

		data, err := os.ReadFile(p)
		if err != nil {
			sink.Report(SeverityWarning, p, IoError{Path: p, Kind: "read", Cause: err})
			newBlocked[p] = struct{}{}
			newFiles[p] = FileEntry{Fingerprint: fp}
			continue
		}

		val, infoRaw, err := bencode.DecodeWithRawInfo(data)
		if err != nil {
			sink.Report(SeverityWarning, p, err)
			newBlocked[p] = struct{}{}
			newFiles[p] = FileEntry{Fingerprint: fp}
			continue
		}

		hash := core.NewInfoHashFromBytes(infoRaw)

		if existing, dup := newParsed[hash]; dup {
			sink.Report(SeverityWarning, p, DuplicateInfoHash{Path: p, Existing: existing.Path})
			newBlocked[p] = struct{}{}
			newFiles[p] = FileEntry{Fingerprint: fp, InfoHash: hash, HasHash: true}
			continue
		}

		rec, err := metainfo.Extract(p, val, hash)
		if err != nil {
			sink.Report(SeverityWarning, p, err)
			newBlocked[p] = struct{}{}
			newFiles[p] = FileEntry{Fingerprint: fp}
			continue
		}
		if !includeMetainfo {
			rec.Metainfo = nil
		}

		newParsed[hash] = rec
		newFiles[p] = FileEntry{Fingerprint: fp, InfoHash: hash, HasHash: true}
		added[hash] = rec
	}

	for p, entry := range prev.Files {
		if _, ok := discovered[p]; ok {
			continue
		}
		if _, blocked := prev.Blocked[p]; blocked {
			continue
		}
		if !entry.HasHash {
			continue
		}
		if rec, ok := prev.Parsed[entry.InfoHash]; ok {
			removed[entry.InfoHash] = rec
		}
	}

	return &ScannerState{Parsed: newParsed, Files: newFiles, Blocked: newBlocked}, added, removed
}

// discover performs Phase 1: a breadth-first walk that stops descending
// into a directory's subdirectories the moment that directory itself
// contains any ".torrent"-suffixed entry.
func discover(root string, sink ErrorSink) map[string]Fingerprint {
	found := make(map[string]Fingerprint)

	queue := []string{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			sink.Report(SeverityWarning, dir, IoError{Path: dir, Kind: "readdir", Cause: err})
			continue
		}

		var torrents []string
		for _, entry := range entries {
			if strings.HasSuffix(entry.Name(), ".torrent") {
				torrents = append(torrents, filepath.Join(dir, entry.Name()))
			}
		}

		if len(torrents) == 0 {
			for _, entry := range entries {
				if entry.IsDir() {
					queue = append(queue, filepath.Join(dir, entry.Name()))
				}
			}
			continue
		}

		for _, p := range torrents {
			info, err := os.Stat(p)
			if err != nil {
				sink.Report(SeverityWarning, p, IoError{Path: p, Kind: "stat", Cause: err})
				continue
			}
			found[p] = Fingerprint{ModTime: info.ModTime(), Size: info.Size()}
		}
	}

	return found
}
