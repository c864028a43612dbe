package controller

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FeatureObserver is the slice of the repository the feature endpoints use.
type FeatureObserver interface {
	ObserveFeatures(ctx context.Context) (<-chan []model.Feature, error)
}

// FeatureController serves the cached partners as GeoJSON.
type FeatureController struct {
	observer FeatureObserver
	shutdown <-chan struct{}
	log      *logrus.Entry
}

// NewFeatureController creates the controller. Open streams end when shutdown
// is closed; a nil channel never ends them.
func NewFeatureController(observer FeatureObserver, shutdown <-chan struct{}) *FeatureController {
	return &FeatureController{observer: observer, shutdown: shutdown, log: logger.WithComponent("feature-controller")}
}

// Features handles GET /features: the first emission of the feature stream
// as a FeatureCollection.
func (fc *FeatureController) Features(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, err := fc.observer.ObserveFeatures(ctx)
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	select {
	case features, ok := <-stream:
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "feature stream closed"})
			return
		}
		c.JSON(http.StatusOK, model.NewFeatureCollection(features))
	case <-ctx.Done():
		respondError(c, fc.log, ctx.Err())
	}
}

// Stream handles GET /features/stream as Server-Sent Events: one "features"
// event carrying a FeatureCollection per emission, until the client leaves or
// the server shuts down.
func (fc *FeatureController) Stream(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, err := fc.observer.ObserveFeatures(ctx)
	if err != nil {
		respondError(c, fc.log, err)
		return
	}

	// The stream outlives the server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		fc.log.WithError(err).Debug("Cannot clear write deadline")
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	fc.log.Debug("Feature stream opened")
	c.Stream(func(w io.Writer) bool {
		select {
		case features, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent("features", model.NewFeatureCollection(features))
			return true
		case <-ctx.Done():
			return false
		case <-fc.shutdown:
			return false
		}
	})
	fc.log.Debug("Feature stream closed")
}
