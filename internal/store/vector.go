//go:build !laminark_vector

package store

// vectorExtensionBuilt reports whether this binary was compiled with the
// sqlite-vec cgo bindings (build tag laminark_vector). The default build
// stays pure Go, matching modernc.org/sqlite, and always runs in
// keyword-only degraded mode; Open only runs its runtime vec0 probe when
// this reports true.
func vectorExtensionBuilt() bool { return false }

func registerVectorExtension() {}
