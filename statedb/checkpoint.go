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
package statedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/uber/torrentd/core"
	"github.com/uber/torrentd/metainfo"
	"github.com/uber/torrentd/scanner"
)

// checkpointState is the persisted form of a scanner.ScannerState. It
// carries enough of each TorrentRecord to resume incremental scanning
// without a full re-parse, but deliberately drops the raw bencode
// Metainfo value: that value's *bencode.Value carries unexported fields
// that don't round-trip through JSON, and a resumed scan re-derives it
// from disk anyway the next time the file is touched.
type checkpointState struct {
	Parsed  []checkpointRecord     `json:"parsed"`
	Files   map[string]checkpointFile `json:"files"`
	Blocked []string               `json:"blocked"`
}

type checkpointRecord struct {
	Path           string     `json:"path"`
	FileName       string     `json:"file_name"`
	NumFiles       int        `json:"num_files"`
	TotalLength    int64      `json:"total_length"`
	DisplayName    string     `json:"display_name"`
	FailureReason  string     `json:"failure_reason,omitempty"`
	WarningMessage string     `json:"warning_message,omitempty"`
	AnnounceList   [][]string `json:"announce_list,omitempty"`
	InfoHash       string     `json:"info_hash"`
}

type checkpointFile struct {
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	InfoHash string    `json:"info_hash,omitempty"`
	HasHash  bool      `json:"has_hash"`
}

// Save persists state as the checkpoint for root, overwriting any
// previous checkpoint for that root.
func Save(db *sqlx.DB, root string, state *scanner.ScannerState) error {
	blob, err := json.Marshal(toCheckpointState(state))
	if err != nil {
		return fmt.Errorf("marshal scanner state: %s", err)
	}
	_, err = db.Exec(
		`INSERT INTO scanner_checkpoint (root, state, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(root) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		root, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert scanner checkpoint: %s", err)
	}
	return nil
}

// Load returns the checkpointed ScannerState for root, or a fresh empty
// ScannerState if no checkpoint has been saved for it yet.
func Load(db *sqlx.DB, root string) (*scanner.ScannerState, error) {
	var blob []byte
	err := db.Get(&blob, `SELECT state FROM scanner_checkpoint WHERE root = ?`, root)
	if err == sql.ErrNoRows {
		return scanner.NewScannerState(), nil
	} else if err != nil {
		return nil, fmt.Errorf("query scanner checkpoint: %s", err)
	}

	var cp checkpointState
	if err := json.Unmarshal(blob, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal scanner state: %s", err)
	}
	return fromCheckpointState(cp)
}

func toCheckpointState(state *scanner.ScannerState) checkpointState {
	cp := checkpointState{
		Parsed: make([]checkpointRecord, 0, len(state.Parsed)),
		Files:  make(map[string]checkpointFile, len(state.Files)),
	}
	for hash, rec := range state.Parsed {
		cp.Parsed = append(cp.Parsed, checkpointRecord{
			Path:           rec.Path,
			FileName:       rec.FileName,
			NumFiles:       rec.NumFiles,
			TotalLength:    rec.TotalLength,
			DisplayName:    rec.DisplayName,
			FailureReason:  rec.FailureReason,
			WarningMessage: rec.WarningMessage,
			AnnounceList:   rec.AnnounceList,
			InfoHash:       hash.Hex(),
		})
	}
	for path, entry := range state.Files {
		cf := checkpointFile{
			ModTime: entry.Fingerprint.ModTime,
			Size:    entry.Fingerprint.Size,
			HasHash: entry.HasHash,
		}
		if entry.HasHash {
			cf.InfoHash = entry.InfoHash.Hex()
		}
		cp.Files[path] = cf
	}
	for path := range state.Blocked {
		cp.Blocked = append(cp.Blocked, path)
	}
	return cp
}

func fromCheckpointState(cp checkpointState) (*scanner.ScannerState, error) {
	state := scanner.NewScannerState()
	for _, rec := range cp.Parsed {
		hash, err := core.NewInfoHashFromHex(rec.InfoHash)
		if err != nil {
			return nil, fmt.Errorf("parse info hash %q: %s", rec.InfoHash, err)
		}
		state.Parsed[hash] = &metainfo.TorrentRecord{
			Path:           rec.Path,
			FileName:       rec.FileName,
			NumFiles:       rec.NumFiles,
			TotalLength:    rec.TotalLength,
			DisplayName:    rec.DisplayName,
			FailureReason:  rec.FailureReason,
			WarningMessage: rec.WarningMessage,
			AnnounceList:   rec.AnnounceList,
			InfoHash:       hash,
		}
	}
	for path, cf := range cp.Files {
		entry := scanner.FileEntry{
			Fingerprint: scanner.Fingerprint{ModTime: cf.ModTime, Size: cf.Size},
			HasHash:     cf.HasHash,
		}
		if cf.HasHash {
			hash, err := core.NewInfoHashFromHex(cf.InfoHash)
			if err != nil {
				return nil, fmt.Errorf("parse info hash %q: %s", cf.InfoHash, err)
			}
			entry.InfoHash = hash
		}
		state.Files[path] = entry
	}
	for _, path := range cp.Blocked {
		state.Blocked[path] = struct{}{}
	}
	return state, nil
}
