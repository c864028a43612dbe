package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/go-playground/validator/v10"
)

const defaultUserAgent = "atlas-sync/1.0"

// HTTPSource fetches the snapshot document with a single GET.
type HTTPSource struct {
	url       string
	userAgent string
	client    *http.Client
	validator *validator.Validate
}

// NewHTTPSource creates a source for url. A zero timeout disables the client timeout.
func NewHTTPSource(url string, timeout time.Duration, userAgent string) (*HTTPSource, error) {
	if url == "" {
		return nil, errors.New("feed url is required")
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &HTTPSource{
		url:       url,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		validator: validator.New(),
	}, nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", model.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", model.ErrTransport, s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: GET %s: unexpected status %d", model.ErrTransport, s.url, resp.StatusCode)
	}

	// Read the whole body first so a dropped connection is reported as transport, not decode.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", model.ErrTransport, err)
	}
	logger.WithComponent("feed").Debugf("fetched %d bytes from %s in %v", len(data), s.url, time.Since(start))

	return decodeSnapshot(data, s.validator)
}
