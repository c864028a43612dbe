package route

import (
	"time"

	"github.com/bassista/atlas/internal/api/controller"
	"github.com/bassista/atlas/internal/api/middleware"
	"github.com/bassista/atlas/internal/repository"
	"github.com/gin-gonic/gin"
)

// NewPartnerRouter sets up cache-only read routes.
func NewPartnerRouter(timeout time.Duration, group *gin.RouterGroup, repo repository.SyncRepository) {
	pc := controller.NewPartnerController(repo)
	timeoutMiddleware := middleware.RequestTimeout(timeout)

	group.GET("partners", timeoutMiddleware, pc.Partners)
	group.GET("partners/near", timeoutMiddleware, pc.Near)
	group.GET("partners/:id", timeoutMiddleware, pc.PartnerByID)
	group.GET("stations", timeoutMiddleware, pc.Stations)
}
