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
package coroutine

import "time"

// Race returns a Future that settles the same way as whichever of futs
// settles first; the rest are left to resolve but have no further effect,
// since a Future only honors its first Resolve or Reject. The core
// scheduler has no notion of timeouts — callers compose one by racing a
// coroutine's own future against a timer future built with
// NewTimerFuture.
func Race(futs ...*Future) *Future {
	result := NewFuture()
	for _, f := range futs {
		f.Then(
			func(v interface{}) { result.Resolve(v) },
			func(err error) { result.Reject(err) },
		)
	}
	return result
}

// NewTimerFuture returns a Future that rejects with FutureRejected{cause}
// after d elapses, and never resolves otherwise. Pairing it with Race
// gives callers a deadline over any other future without the scheduler
// itself knowing about clocks:
//
//	awaited := coroutine.Race(bodyFuture, coroutine.NewTimerFuture(5*time.Second, ErrDeadlineExceeded))
func NewTimerFuture(d time.Duration, cause error) *Future {
	fut := NewFuture()
	time.AfterFunc(d, func() {
		fut.Reject(FutureRejected{Cause: cause})
	})
	return fut
}
