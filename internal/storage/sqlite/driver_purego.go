//go:build !sqlite_cgo

package sqlite

// Pure Go driver, no C toolchain needed. Build with -tags sqlite_cgo to use
// github.com/mattn/go-sqlite3 instead.

import (
	_ "modernc.org/sqlite"
)

const (
	DriverName = "sqlite"
	BuildMode  = "purego"
)
