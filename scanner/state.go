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

// Package scanner implements the incremental, breadth-first directory
// scanner that discovers, parses, de-duplicates, and tracks .torrent
// metainfo files beneath a root directory.
package scanner

import (
	"time"

	"github.com/uber/torrentd/core"
	"github.com/uber/torrentd/metainfo"
)

// Fingerprint is a cheap proxy for "has this file's content changed",
// avoiding a re-read and re-parse of unchanged files on every scan.
type Fingerprint struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether f and other identify the same file content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.ModTime.Equal(other.ModTime) && f.Size == other.Size
}

// FileEntry is the per-path bookkeeping a ScannerState retains between
// scans. HasHash is false exactly when the file at Path is known to be
// unparseable ("infohash is none" in spec.md §3).
type FileEntry struct {
	Fingerprint Fingerprint
	InfoHash    core.InfoHash
	HasHash     bool
}

// ScannerState is the scanner's entire persisted view of a root directory.
// It is caller-owned: Scan never mutates the ScannerState it is given,
// always returning a fresh one.
type ScannerState struct {
	// Parsed maps an infohash to the record of the currently-tracked
	// torrent carrying it.
	Parsed map[core.InfoHash]*metainfo.TorrentRecord

	// Files maps a discovered path to its fingerprint and infohash (if
	// any) as of the last scan that saw it.
	Files map[string]FileEntry

	// Blocked is the set of paths the scanner refuses to publish, either
	// because they are unparseable or because another path holding the
	// same infohash was accepted first.
	Blocked map[string]struct{}
}

// NewScannerState returns an empty ScannerState, suitable as the
// prev_state of a first scan.
func NewScannerState() *ScannerState {
	return &ScannerState{
		Parsed:  make(map[core.InfoHash]*metainfo.TorrentRecord),
		Files:   make(map[string]FileEntry),
		Blocked: make(map[string]struct{}),
	}
}
