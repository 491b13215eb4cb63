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

// Package coroutine implements launch_coroutine: a primitive that lets a
// function written in linear style suspend on futures and resume with
// either a value or an error, producing a single final Future.
package coroutine

import (
	"sync"

	"go.uber.org/atomic"
)

// Future is a write-once cell carrying either a value or an error.
// Observers registered before or after resolution both fire exactly once,
// in registration order. Cancellation is not modeled.
type Future struct {
	resolved atomic.Bool

	mu        sync.Mutex
	value     interface{}
	err       error
	observers []func(interface{}, error)
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{}
}

// Resolve completes f successfully with v. Only the first call to Resolve
// or Reject on a given Future has any effect.
func (f *Future) Resolve(v interface{}) {
	f.complete(v, nil)
}

// Reject completes f with err. Only the first call to Resolve or Reject
// on a given Future has any effect.
func (f *Future) Reject(err error) {
	f.complete(nil, err)
}

func (f *Future) complete(v interface{}, err error) {
	if f.resolved.Load() {
		// Fast path: skips the lock for the common case of a future that
		// is resolved at most once and never contended on afterward.
		return
	}

	f.mu.Lock()
	if f.resolved.Load() {
		f.mu.Unlock()
		return
	}
	f.value, f.err = v, err
	f.resolved.Store(true)
	observers := f.observers
	f.observers = nil // drop references so a resolved future retains nothing
	f.mu.Unlock()

	for _, obs := range observers {
		obs(v, err)
	}
}

// Then registers onOK and onErr, exactly one of which fires once f
// resolves: onOK(value) if Resolve was called, onErr(err) if Reject was.
// Either callback may be nil. If f is already resolved, the matching
// callback fires synchronously, from the calling goroutine.
func (f *Future) Then(onOK func(interface{}), onErr func(error)) {
	f.mu.Lock()
	if !f.resolved.Load() {
		f.observers = append(f.observers, func(v interface{}, err error) {
			fire(v, err, onOK, onErr)
		})
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fire(v, err, onOK, onErr)
}

func fire(v interface{}, err error, onOK func(interface{}), onErr func(error)) {
	if err != nil {
		if onErr != nil {
			onErr(err)
		}
		return
	}
	if onOK != nil {
		onOK(v)
	}
}

// IsResolved reports whether f has been resolved or rejected.
func (f *Future) IsResolved() bool {
	return f.resolved.Load()
}
