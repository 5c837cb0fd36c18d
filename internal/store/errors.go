package store

import "errors"

// Sentinel errors repositories use so callers can distinguish "missing"
// from "failed" without a panic, per the fail-closed error model.
var (
	ErrNotFound = errors.New("laminark: not found")
	ErrDegraded = errors.New("laminark: vector extension unavailable")
)
