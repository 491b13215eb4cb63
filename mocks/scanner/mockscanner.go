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

// Source: github.com/uber/torrentd/scanner (interfaces: ErrorSink)

// Package mockscanner is a generated GoMock package.
package mockscanner

import (
	reflect "reflect"

	gomock "github.com/golang/mock/gomock"

	scanner "github.com/uber/torrentd/scanner"
)

// MockErrorSink is a mock of ErrorSink interface.
type MockErrorSink struct {
	ctrl     *gomock.Controller
	recorder *MockErrorSinkMockRecorder
}

// MockErrorSinkMockRecorder is the mock recorder for MockErrorSink.
type MockErrorSinkMockRecorder struct {
	mock *MockErrorSink
}

// NewMockErrorSink creates a new mock instance.
func NewMockErrorSink(ctrl *gomock.Controller) *MockErrorSink {
	mock := &MockErrorSink{ctrl: ctrl}
	mock.recorder = &MockErrorSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockErrorSink) EXPECT() *MockErrorSinkMockRecorder {
	return m.recorder
}

// Report mocks base method.
func (m *MockErrorSink) Report(severity scanner.Severity, path string, err error) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Report", severity, path, err)
}

// Report indicates an expected call of Report.
func (mr *MockErrorSinkMockRecorder) Report(severity, path, err interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Report",
		reflect.TypeOf((*MockErrorSink)(nil).Report), severity, path, err)
}
