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
package scanloop

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"

	"github.com/uber/torrentd/bencode"
	"github.com/uber/torrentd/scanner"
)

type testSink struct{}

func (testSink) Report(severity scanner.Severity, path string, err error) {}

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
	require.NoError(t, err)

	path := dir + "/" + fileName
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

// deltaCollector accumulates every ScanDelta a Loop reports, so tests can
// wait for the next one instead of racing a fixed sleep.
type deltaCollector struct {
	mu     sync.Mutex
	deltas []ScanDelta
	seen   chan struct{}
}

func newDeltaCollector() *deltaCollector {
	return &deltaCollector{seen: make(chan struct{}, 64)}
}

func (c *deltaCollector) handle(d ScanDelta) {
	c.mu.Lock()
	c.deltas = append(c.deltas, d)
	c.mu.Unlock()
	c.seen <- struct{}{}
}

func (c *deltaCollector) waitForScan(t *testing.T) ScanDelta {
	t.Helper()
	select {
	case <-c.seen:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scan")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deltas[len(c.deltas)-1]
}

func TestLoopRunsScanOnEachTick(t *testing.T) {
	dir := t.TempDir()
	writeTorrentFixture(t, dir, "a.torrent", "a", 1024)

	collector := newDeltaCollector()
	l := New(clock.New(), tally.NoopScope, Config{Root: dir, Interval: 20 * time.Millisecond},
		testSink{}, scanner.NewScannerState(), collector.handle)
	l.Start()
	defer l.Stop()

	delta := collector.waitForScan(t)
	require.Len(t, delta.Added, 1)
	require.Empty(t, delta.Removed)
	require.Equal(t, 1, len(l.State().Parsed))
}

func TestLoopReportsRemovalsAcrossTicks(t *testing.T) {
	dir := t.TempDir()
	p := writeTorrentFixture(t, dir, "a.torrent", "a", 1024)

	collector := newDeltaCollector()
	l := New(clock.New(), tally.NoopScope, Config{Root: dir, Interval: 20 * time.Millisecond},
		testSink{}, scanner.NewScannerState(), collector.handle)
	l.Start()
	defer l.Stop()

	collector.waitForScan(t)
	require.NoError(t, os.Remove(p))

	var delta ScanDelta
	for i := 0; i < 50 && len(delta.Removed) == 0; i++ {
		delta = collector.waitForScan(t)
	}
	require.Len(t, delta.Removed, 1)
}

func TestLoopDisabledNeverScans(t *testing.T) {
	dir := t.TempDir()
	writeTorrentFixture(t, dir, "a.torrent", "a", 1024)

	collector := newDeltaCollector()
	l := New(clock.New(), tally.NoopScope, Config{Root: dir, Interval: 10 * time.Millisecond, Disabled: true},
		testSink{}, scanner.NewScannerState(), collector.handle)
	l.Start()

	require.NoError(t, l.Stop())
	require.Empty(t, collector.deltas)
}

type fakeCloser struct {
	err error
}

func (c fakeCloser) Close() error { return c.err }

func TestLoopStopAggregatesCloserErrors(t *testing.T) {
	dir := t.TempDir()
	collector := newDeltaCollector()

	l := New(clock.New(), tally.NoopScope, Config{Root: dir, Interval: time.Second},
		testSink{}, scanner.NewScannerState(), collector.handle)
	l.AddCloser(fakeCloser{err: errors.New("first")})
	l.AddCloser(fakeCloser{err: errors.New("second")})
	l.Start()

	err := l.Stop()
	require.Error(t, err)
	require.Contains(t, err.Error(), "first")
	require.Contains(t, err.Error(), "second")
}

func TestLoopStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	collector := newDeltaCollector()

	l := New(clock.New(), tally.NoopScope, Config{Root: dir, Interval: time.Second},
		testSink{}, scanner.NewScannerState(), collector.handle)
	l.Start()

	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())
}
