//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled without CGO. Vector similarity falls back to a full scan with
// cosine computed in Go, which is the documented O(n) path at the target
// corpus scale.
//
// Build command:
//   CGO_ENABLED=0 go build -tags "purego" ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether sqlite-vec SQL functions
	// can be used for similarity scans
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
