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

// torrentd scans a directory of .torrent files, publishing every
// add/remove it observes, and exposes a small coroutine-based scheduler
// components can use to sequence their own async follow-up work (e.g.
// announcing a newly discovered torrent) without blocking the scan loop.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/andres-erbsen/clock"

	"github.com/uber/torrentd/coroutine"
	"github.com/uber/torrentd/internal/configutil"
	"github.com/uber/torrentd/internal/log"
	"github.com/uber/torrentd/internal/metrics"
	"github.com/uber/torrentd/internal/scanloop"
	"github.com/uber/torrentd/metainfo"
	"github.com/uber/torrentd/scanner"
	"github.com/uber/torrentd/statedb"
)

// eventLoop is a single-goroutine work queue, serving as the Enqueuer
// every coroutine.Launch call in this process shares: every posted task
// runs on the same goroutine, so coroutine resumptions never race each
// other even though futures may be resolved from other goroutines (the
// scan loop's own ticker goroutine, in particular).
type eventLoop struct {
	tasks chan func()
}

func newEventLoop() *eventLoop {
	return &eventLoop{tasks: make(chan func(), 256)}
}

func (q *eventLoop) Enqueue(task func()) {
	q.tasks <- task
}

func (q *eventLoop) run(stop <-chan struct{}) {
	for {
		select {
		case task := <-q.tasks:
			task()
		case <-stop:
			return
		}
	}
}

// announce runs as a coroutine for every newly discovered torrent,
// giving future announce/registration steps a place to await other
// futures (an HTTP response, a peer handshake) without blocking the
// scanner.
func announce(rec *metainfo.TorrentRecord) coroutine.Body {
	return func(co *coroutine.Coroutine) (interface{}, error) {
		ready := coroutine.NewFuture()
		ready.Resolve(rec.InfoHash.Hex())
		hash, err := co.Await(ready)
		if err != nil {
			return nil, err
		}
		log.Infof("Announced %s (%s, %d bytes)", rec.DisplayName, hash, rec.TotalLength)
		return hash, nil
	}
}

type sink struct{}

func (sink) Report(severity scanner.Severity, path string, err error) {
	if severity == scanner.SeverityError {
		log.Errorf("Scan error on %s: %s", path, err)
	} else {
		log.Warnf("Scan warning on %s: %s", path, err)
	}
}

func main() {
	configFile := flag.String("config", "", "configuration file to load")
	flag.Parse()

	var config Config
	if err := configutil.Load(*configFile, &config); err != nil {
		panic(err)
	}

	zlog := log.ConfigureLogger(config.ZapLogging)
	defer zlog.Sync()

	stats, closer, err := metrics.New(config.Metrics)
	if err != nil {
		log.Fatalf("Failed to init metrics: %s", err)
	}
	defer closer.Close()

	db, err := statedb.New(config.StateDB)
	if err != nil {
		log.Fatalf("Failed to open state database: %s", err)
	}

	initial, err := statedb.Load(db, config.Scan.Root)
	if err != nil {
		log.Fatalf("Failed to load scanner checkpoint: %s", err)
	}

	loop := newEventLoop()
	loopDone := make(chan struct{})
	go loop.run(loopDone)

	var sl *scanloop.Loop
	sl = scanloop.New(clock.New(), stats, config.Scan, sink{}, initial, func(delta scanloop.ScanDelta) {
		for _, rec := range delta.Added {
			coroutine.Launch(loop, announce(rec))
		}
		for hash, rec := range delta.Removed {
			log.Infof("Removed %s (%s)", rec.DisplayName, hash.Hex())
		}
		if err := statedb.Save(db, config.Scan.Root, sl.State()); err != nil {
			log.Errorf("Failed to save scanner checkpoint: %s", err)
		}
	})
	sl.AddCloser(closerFunc(func() error { return statedb.Save(db, config.Scan.Root, sl.State()) }))
	sl.AddCloser(closerFunc(db.Close))

	sl.Start()
	log.Infof("Scanning %s every %s", config.Scan.Root, config.Scan.Interval)

	term := make(chan os.Signal, 1)
	signal.Notify(term, syscall.SIGINT, syscall.SIGTERM)
	<-term

	log.Info("Shutting down")
	if err := sl.Stop(); err != nil {
		log.Errorf("Error during shutdown: %s", err)
	}
	close(loopDone)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
