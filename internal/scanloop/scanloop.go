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

// Package scanloop drives scanner.Scan on a timer, publishing each scan's
// added/removed deltas to a caller-supplied handler and tracking ongoing
// ScannerState between ticks.
package scanloop

import (
	"fmt"
	"sync"

	"github.com/andres-erbsen/clock"
	"github.com/c2h5oh/datasize"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"

	"github.com/uber/torrentd/core"
	"github.com/uber/torrentd/internal/log"
	"github.com/uber/torrentd/metainfo"
	"github.com/uber/torrentd/scanner"
)

// ScanDelta is the set of torrents added or removed by a single scan.
type ScanDelta struct {
	Added   map[core.InfoHash]*metainfo.TorrentRecord
	Removed map[core.InfoHash]*metainfo.TorrentRecord
}

// Handler receives every scan's delta, including empty ones.
type Handler func(ScanDelta)

// Closer is a resource that should be cleaned up when a Loop stops, e.g.
// a statedb handle holding the final ScannerState.
type Closer interface {
	Close() error
}

// Loop periodically scans Config.Root and reports changes to a Handler.
type Loop struct {
	config  Config
	clk     clock.Clock
	stats   tally.Scope
	sink    scanner.ErrorSink
	handler Handler

	mu    sync.Mutex
	state *scanner.ScannerState

	closers  []Closer
	stopOnce sync.Once
	stopc    chan struct{}
	donec    chan struct{}
}

// New creates a Loop that begins scanning from initial (use
// scanner.NewScannerState() for a cold start, or a checkpoint loaded from
// statedb to resume).
func New(
	clk clock.Clock,
	stats tally.Scope,
	config Config,
	sink scanner.ErrorSink,
	initial *scanner.ScannerState,
	handler Handler,
) *Loop {
	config = config.applyDefaults()
	return &Loop{
		config:  config,
		clk:     clk,
		stats:   stats.Tagged(map[string]string{"module": "scanloop"}),
		sink:    sink,
		handler: handler,
		state:   initial,
		stopc:   make(chan struct{}),
		donec:   make(chan struct{}),
	}
}

// AddCloser registers a resource to be closed when the Loop stops, in
// registration order. Errors from multiple closers are aggregated rather
// than short-circuiting on the first failure, so e.g. a failed checkpoint
// save doesn't suppress a failed metrics flush.
func (l *Loop) AddCloser(c Closer) {
	l.closers = append(l.closers, c)
}

// State returns the Loop's current ScannerState. Safe to call
// concurrently with Start.
func (l *Loop) State() *scanner.ScannerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start runs scans on a ticker until Stop is called. It does nothing if
// the Loop is disabled.
func (l *Loop) Start() {
	if l.config.Disabled {
		log.Warnf("Scan loop disabled for %s", l.config.Root)
		close(l.donec)
		return
	}

	ticker := l.clk.Ticker(l.config.Interval)
	totalGauge := l.stats.Gauge("total_length_bytes")
	torrentsGauge := l.stats.Gauge("torrents_tracked")

	go func() {
		defer close(l.donec)
		for {
			select {
			case <-ticker.C:
				l.runOnce(totalGauge, torrentsGauge)
			case <-l.stopc:
				ticker.Stop()
				return
			}
		}
	}()
}

func (l *Loop) runOnce(totalGauge, torrentsGauge tally.Gauge) {
	l.mu.Lock()
	prev := l.state
	l.mu.Unlock()

	newState, added, removed := scanner.Scan(l.config.Root, prev, l.sink, l.config.IncludeMetainfo)

	l.mu.Lock()
	l.state = newState
	l.mu.Unlock()

	var total uint64
	for _, rec := range newState.Parsed {
		total += uint64(rec.TotalLength)
	}
	totalGauge.Update(float64(total))
	torrentsGauge.Update(float64(len(newState.Parsed)))

	if len(added) > 0 || len(removed) > 0 {
		log.Infof("Scan of %s found %d added, %d removed (tracking %s)",
			l.config.Root, len(added), len(removed), datasize.ByteSize(total).HumanReadable())
	}

	l.handler(ScanDelta{Added: added, Removed: removed})
}

// Stop halts the ticker and closes every registered Closer, returning the
// aggregation of any errors they produced. Stop is idempotent.
func (l *Loop) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		close(l.stopc)
		<-l.donec
		for _, c := range l.closers {
			if cerr := c.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("close %T: %s", c, cerr))
			}
		}
	})
	return err
}
