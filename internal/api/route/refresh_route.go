package route

import (
	"time"

	"github.com/bassista/atlas/internal/api/controller"
	"github.com/bassista/atlas/internal/api/middleware"
	"github.com/bassista/atlas/internal/repository"
	"github.com/gin-gonic/gin"
)

// NewRefreshRouter sets up the routes that hit the remote feed.
func NewRefreshRouter(timeout time.Duration, group *gin.RouterGroup, repo repository.SyncRepository) {
	pc := controller.NewPartnerController(repo)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.POST("refresh", timeoutMiddleware, pc.RefreshAll)
	group.POST("refresh/partners", timeoutMiddleware, pc.RefreshPartners)
	group.POST("refresh/stations", timeoutMiddleware, pc.RefreshStations)
}
