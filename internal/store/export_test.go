package store

import "testing"

// setAfterDeleteHook installs fn between DELETE and INSERT of every SQLite
// replace for the duration of the test.
func setAfterDeleteHook(t *testing.T, fn func()) {
	t.Helper()
	afterDeleteHook = fn
	t.Cleanup(func() { afterDeleteHook = nil })
}
