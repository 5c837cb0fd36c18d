//go:build laminark_vector

package store

import (
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func vectorExtensionBuilt() bool { return true }

// registerVectorExtension wires the sqlite-vec0 loadable extension into
// every connection modernc.org/sqlite's driver opens from here on. It
// must run exactly once, before the first Open.
func registerVectorExtension() {
	sqlite_vec.Auto()
}
