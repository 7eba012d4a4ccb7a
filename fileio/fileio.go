// Package fileio provides the pluggable save/load pair the core evaluation
// engine requires (spec §2.2), plus a default codec good enough for demos
// and tests.
package fileio

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
)

// SaveFunc persists value at path. Implementations are user-supplied; the
// core only ever calls it, never interprets its errors beyond wrapping.
type SaveFunc func(value any, path string) error

// LoadFunc reads back whatever a SaveFunc wrote at path. A file-not-found
// error is treated specially by the cache layer (spec §4.4 step 1 / §7);
// every other error propagates unchanged.
type LoadFunc func(path string) (any, error)

// PathFunc resolves a cache descriptor's path as a function of the
// effective bindings in force, per spec §4.4 ("resolve(path_spec,
// effective_bindings)").
type PathFunc func(bindings map[string]any) string

// StaticPath wraps a fixed path string as a PathFunc that ignores bindings.
// Foreach compute nodes must not use this (spec §3: "its on-disk cache
// descriptor, if present, must resolve its path as a function of
// bindings... because per-element results need distinct paths").
func StaticPath(path string) PathFunc {
	return func(map[string]any) string { return path }
}

// SaveGob is the default payload codec. encoding/gob is used instead of
// encoding/json because the cache's bindings-equality check (spec §4.4 step
// 3) needs exact type round-trips — JSON would coerce every stored int to
// float64 and silently break that comparison for integer-valued bindings.
func SaveGob(value any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// LoadGob is the default payload codec's counterpart to SaveGob.
func LoadGob(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// SaveJSON and LoadJSON are offered as an alternative payload codec for
// callers who want a human-readable artifact and are willing to accept
// JSON's numeric-type coercion (e.g. because the payload feeds a typed
// unmarshal downstream rather than participating in bindings comparison).
func SaveJSON(value any, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadJSON reads back a value written by SaveJSON.
func LoadJSON(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// Exists reports whether path names a regular, readable file. It never
// returns an error: any os.Stat failure (not-exist or otherwise) is treated
// as absence, matching the cache layer's "nothing to load yet" semantics.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SidecarPath derives the path of the metadata file accompanying payloadPath,
// following the "dotfile next to the payload" convention.
func SidecarPath(payloadPath string) string {
	dir, base := filepath.Split(payloadPath)
	return filepath.Join(dir, "."+base+".dagma-cache")
}
