// Package feed fetches the remote snapshot document that seeds the local cache.
package feed

import (
	"context"
	"fmt"

	"github.com/bassista/atlas/internal/config"
)

const (
	DriverHTTP = "http"
	DriverFile = "file"
	DriverS3   = "s3"
)

// maxSnapshotBytes is the largest snapshot document accepted. Sources read one
// byte past it so decodeSnapshot can reject an oversize document instead of
// parsing a truncated one.
var maxSnapshotBytes int64 = 32 << 20

// Source fetches one complete snapshot. Implementations classify failures as
// model.ErrTransport or model.ErrDecode and never retry.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// NewSourceFromConfig creates a Source based on cfg.Driver.
// An empty driver means "http".
func NewSourceFromConfig(cfg config.FeedConfig) (Source, error) {
	switch cfg.Driver {
	case DriverHTTP, "":
		return NewHTTPSource(cfg.URL, cfg.Timeout, cfg.UserAgent)
	case DriverFile:
		return NewFileSource(cfg.FilePath)
	case DriverS3:
		return NewS3Source(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown feed driver: %s (supported: %s, %s, %s)", cfg.Driver, DriverHTTP, DriverFile, DriverS3)
	}
}
