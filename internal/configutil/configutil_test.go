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
package configutil

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type scannerConfig struct {
	Root         string       `yaml:"root"`
	PollInterval int          `yaml:"poll_interval_sec"`
	Nested       nestedConfig `yaml:"nested"`
}

type nestedConfig struct {
	BufferSpace int    `yaml:"buffer_space" validate:"nonzero"`
	Label       string `yaml:"label"`
}

const goodConfig = `
root: /var/torrents
poll_interval_sec: 30
nested:
  buffer_space: 4096
  label: base
`

const invalidConfig = `
root: /var/torrents
nested:
  buffer_space: 0
`

const extendsOverride = `
extends: base.yaml
poll_interval_sec: 60
`

func writeFile(t *testing.T, dir, name, contents string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(p, []byte(contents), 0644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "base.yaml", goodConfig)

	var cfg scannerConfig
	require.NoError(t, Load(p, &cfg))
	require.Equal(t, "/var/torrents", cfg.Root)
	require.Equal(t, 30, cfg.PollInterval)
	require.Equal(t, 4096, cfg.Nested.BufferSpace)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg scannerConfig
	err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "bad.yaml", "root:\n\tbad indentation with a tab\n")

	var cfg scannerConfig
	require.Error(t, Load(p, &cfg))
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "invalid.yaml", invalidConfig)

	var cfg scannerConfig
	err := Load(p, &cfg)
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.ErrForField("BufferSpace"))
}

func TestLoadFilesValidateOnce(t *testing.T) {
	// The child file on its own is invalid (it sets no nested.buffer_space),
	// but merged over its base the result is valid, so validation must run
	// once against the merge, not against the child file alone.
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", goodConfig)
	child := writeFile(t, dir, "child.yaml", extendsOverride)

	var cfg scannerConfig
	require.NoError(t, Load(child, &cfg))
	require.Equal(t, 60, cfg.PollInterval)
	// Fields the override never mentions survive from the base.
	require.Equal(t, "/var/torrents", cfg.Root)
	require.Equal(t, 4096, cfg.Nested.BufferSpace)
}

func TestExtendsConfigDeep(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", goodConfig)
	writeFile(t, dir, "mid.yaml", "extends: base.yaml\nnested:\n  label: mid\n")
	leaf := writeFile(t, dir, "leaf.yaml", "extends: mid.yaml\nroot: /mnt/torrents\n")

	var cfg scannerConfig
	require.NoError(t, Load(leaf, &cfg))
	require.Equal(t, "/mnt/torrents", cfg.Root)
	require.Equal(t, "mid", cfg.Nested.Label)
	require.Equal(t, 4096, cfg.Nested.BufferSpace)
}

func TestExtendsConfigCircularRef(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "extends: b.yaml\n")
	a := filepath.Join(dir, "a.yaml")
	writeFile(t, dir, "b.yaml", "extends: a.yaml\n")

	var cfg scannerConfig
	err := Load(a, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cyclic reference in configuration extends detected")
}

func TestResolveExtends(t *testing.T) {
	tests := []struct {
		name    string
		fpath   string
		extends map[string]string
		want    []string
		wantErr error
	}{
		{
			name:    "no extends",
			fpath:   "/configs/c1",
			extends: map[string]string{},
			want:    []string{"/configs/c1"},
		},
		{
			name:    "absolute parent",
			fpath:   "/configs/c1",
			extends: map[string]string{"/configs/c1": "/configs/c2"},
			want:    []string{"/configs/c2", "/configs/c1"},
		},
		{
			name:    "relative parent",
			fpath:   "/configs/c1",
			extends: map[string]string{"/configs/c1": "c2"},
			want:    []string{"/configs/c2", "/configs/c1"},
		},
		{
			name:  "cycle",
			fpath: "/configs/c1",
			extends: map[string]string{
				"/configs/c1": "c2",
				"/configs/c2": "c1",
			},
			wantErr: ErrCycleRef,
		},
		{
			name:  "mixed absolute and relative chain",
			fpath: "/configs/c1",
			extends: map[string]string{
				"/configs/c1": "/etc/c2",
				"/etc/c2":     "c3",
			},
			want: []string{"/etc/c3", "/etc/c2", "/configs/c1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readFn := func(f string) (string, error) {
				return tt.extends[f], nil
			}
			got, err := resolveExtends(tt.fpath, readFn)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
