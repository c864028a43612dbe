package feed

import "testing"

// setMaxSnapshotBytes lowers the snapshot size limit for the duration of t.
func setMaxSnapshotBytes(t *testing.T, n int64) {
	t.Helper()
	prev := maxSnapshotBytes
	maxSnapshotBytes = n
	t.Cleanup(func() { maxSnapshotBytes = prev })
}
