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
	"testing"
	"time"

	"github.com/uber/torrentd/bencode"
)

// testSink collects every report made to it, for assertion in tests.
type testSink struct {
	reports []sinkReport
}

type sinkReport struct {
	severity Severity
	path     string
	err      error
}

func (s *testSink) Report(severity Severity, path string, err error) {
	s.reports = append(s.reports, sinkReport{severity, path, err})
}

// writeTorrentFixture writes a minimal valid single-file torrent named
// name (with length) under dir/fileName. The file's mtime is left as the
// filesystem sets it on write.
func writeTorrentFixture(t *testing.T, dir, fileName, name string, length int64) string {
	t.Helper()

	info := bencode.NewOrderedMap()
	info.Set("piece length", bencode.NewInt(16384))
	info.Set("pieces", bencode.NewBytes(make([]byte, 20)))
	info.Set("name", bencode.NewString(name))
	info.Set("length", bencode.NewInt(length))

	root := bencode.NewOrderedMap()
	root.Set("info", bencode.NewMap(info))

	raw, err := bencode.Encode(bencode.NewMap(root))
	if err != nil {
		t.Fatalf("encode fixture: %s", err)
	}

	path := dir + "/" + fileName
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}
	return path
}

func touchFile(t *testing.T, path string, when time.Time) {
	t.Helper()
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("chtimes: %s", err)
	}
}
