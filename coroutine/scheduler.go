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

// Enqueuer is the caller-supplied work-queue injector. Launch and the
// Coroutines it creates never call anything concurrently with itself;
// every resumption is posted through Enqueue so a single-threaded caller
// (an event loop draining one queue) sees strictly serialized steps.
// Enqueue must eventually run task on the caller's single execution
// thread; if Enqueue is made thread-safe, futures may be resolved from
// other threads.
type Enqueuer interface {
	Enqueue(task func())
}

// EnqueueFunc adapts a plain function to Enqueuer.
type EnqueueFunc func(task func())

// Enqueue implements Enqueuer.
func (f EnqueueFunc) Enqueue(task func()) {
	f(task)
}

// Body is a coroutine's computation. It runs to completion on its own
// goroutine, suspending only inside calls to Coroutine.Await, and returns
// the value (or error) that becomes the result of the Future Launch
// returned.
type Body func(co *Coroutine) (interface{}, error)

// Coroutine is the handle a running Body uses to suspend itself on a
// Future and resume with the value or error it was rejected with.
type Coroutine struct {
	enqueue  Enqueuer
	resumeCh chan resumeMsg
}

type resumeMsg struct {
	value interface{}
	err   error
}

type finishMsg struct {
	value interface{}
	err   error
}

// Await suspends the calling Body until fut resolves. The continuations
// registered on fut post the resumption through Enqueue rather than
// waking the coroutine directly, so a coroutine awaiting an
// already-resolved future still experiences a re-enqueue instead of an
// immediate re-entry — this preserves the stack discipline the scheduler
// promises callers.
func (co *Coroutine) Await(fut *Future) (interface{}, error) {
	fut.Then(
		func(v interface{}) {
			co.enqueue.Enqueue(func() {
				co.resumeCh <- resumeMsg{value: v}
			})
		},
		func(err error) {
			co.enqueue.Enqueue(func() {
				co.resumeCh <- resumeMsg{err: err}
			})
		},
	)
	resp := <-co.resumeCh
	return resp.value, resp.err
}

// Launch starts body as a coroutine and returns the Future that resolves
// with body's return value, or rejects with its returned error (or a
// panic escaping it). The first step — starting body's goroutine — is
// itself posted through enqueue rather than run synchronously, so an
// error raised in body's very first statements is still observed only by
// a caller that has already received the returned Future and attached
// continuations to it.
//
// Two coroutines awaiting the same future resume in the order their
// continuations were registered, since Future fires observers in
// registration order and enqueue is assumed to preserve submission order.
func Launch(enqueue Enqueuer, body Body) *Future {
	result := NewFuture()
	co := &Coroutine{
		enqueue:  enqueue,
		resumeCh: make(chan resumeMsg),
	}

	finishCh := make(chan finishMsg, 1)

	enqueue.Enqueue(func() {
		go runBody(body, co, finishCh)
	})

	go func() {
		msg := <-finishCh
		if msg.err != nil {
			result.Reject(msg.err)
		} else {
			result.Resolve(msg.value)
		}
		// Drop the coroutine's channel now that nothing will send on or
		// receive from it again, breaking the reference the Then
		// continuations above would otherwise hold open indefinitely.
		co.resumeCh = nil
	}()

	return result
}

func runBody(body Body, co *Coroutine, finishCh chan<- finishMsg) {
	defer func() {
		if r := recover(); r != nil {
			finishCh <- finishMsg{err: panicError{r}}
		}
	}()
	v, err := body(co)
	finishCh <- finishMsg{value: v, err: err}
}
