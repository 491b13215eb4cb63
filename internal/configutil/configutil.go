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

// Package configutil loads YAML configuration files that may extend one
// another through a top-level "extends" key, merging the chain from the
// most distant ancestor down to the requested file before running a
// single validation pass over the merged result.
package configutil

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ErrCycleRef is returned when a chain of "extends" references loops
// back on itself.
var ErrCycleRef = errors.New("cyclic reference in configuration extends detected")

// ValidationError wraps the field-level errors produced by validating a
// fully-merged configuration.
type ValidationError struct {
	errs validator.ErrorMap
}

// Error implements error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s", map[string][]error(e.errs))
}

// ErrForField returns the validation errors recorded against field, or
// nil if field passed validation.
func (e ValidationError) ErrForField(field string) validator.ErrorArray {
	errs, ok := e.errs[field]
	if !ok {
		return nil
	}
	return errs
}

type extendsHeader struct {
	Extends string `yaml:"extends"`
}

// Load reads filename and any files it transitively extends, merges them
// base-first into config, and validates the merged result.
func Load(filename string, config interface{}) error {
	filenames, err := resolveExtends(filename, readExtends)
	if err != nil {
		return err
	}
	return loadFiles(config, filenames)
}

func readExtends(filename string) (string, error) {
	b, err := ioutil.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("read %s: %s", filename, err)
	}
	var h extendsHeader
	if err := yaml.Unmarshal(b, &h); err != nil {
		return "", fmt.Errorf("parse %s: %s", filename, err)
	}
	return h.Extends, nil
}

// resolveExtends walks the "extends" chain starting at fpath, using
// readExtendsFn to discover each file's parent, and returns the chain
// ordered from the most distant ancestor to fpath itself. A relative
// extends value is resolved against the directory of the file that
// named it; an absolute value is used as-is.
func resolveExtends(fpath string, readExtendsFn func(string) (string, error)) ([]string, error) {
	visited := make(map[string]bool)
	var chain []string

	cur := fpath
	for {
		if visited[cur] {
			return nil, ErrCycleRef
		}
		visited[cur] = true
		chain = append(chain, cur)

		parent, err := readExtendsFn(cur)
		if err != nil {
			return nil, err
		}
		if parent == "" {
			break
		}
		if !filepath.IsAbs(parent) {
			parent = filepath.Join(filepath.Dir(cur), parent)
		}
		cur = parent
	}

	reversed := make([]string, len(chain))
	for i, f := range chain {
		reversed[len(chain)-1-i] = f
	}
	return reversed, nil
}

// loadFiles unmarshals filenames into config in order, so later files
// (more specific configs) override fields set by earlier ones (their
// ancestors) without clobbering fields the later file leaves unset, then
// validates the merged config exactly once.
func loadFiles(config interface{}, filenames []string) error {
	for _, f := range filenames {
		b, err := ioutil.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %s", f, err)
		}
		if err := yaml.Unmarshal(b, config); err != nil {
			return fmt.Errorf("parse %s: %s", f, err)
		}
	}

	if err := validator.Validate(config); err != nil {
		if errMap, ok := err.(validator.ErrorMap); ok {
			return ValidationError{errs: errMap}
		}
		return err
	}
	return nil
}
