package route

import (
	"time"

	"github.com/bassista/atlas/internal/api/controller"
	"github.com/bassista/atlas/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// NewFeatureRouter sets up the GeoJSON routes. The stream is long lived and
// therefore has no request timeout; it ends when shutdown is closed.
func NewFeatureRouter(timeout time.Duration, group *gin.RouterGroup, observer controller.FeatureObserver, shutdown <-chan struct{}) {
	fc := controller.NewFeatureController(observer, shutdown)

	group.GET("features", middleware.RequestTimeout(timeout), fc.Features)
	group.GET("features/stream", fc.Stream)
}
