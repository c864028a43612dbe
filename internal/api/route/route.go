package route

import (
	"net/http"

	"github.com/bassista/atlas/internal/app"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, appCtx *app.App) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	publicRouter := r.Group("")
	timeout := appCtx.Config.Server.RequestTimeout

	NewRefreshRouter(timeout, publicRouter, appCtx.Repo)
	NewPartnerRouter(timeout, publicRouter, appCtx.Repo)
	NewFeatureRouter(timeout, publicRouter, appCtx.Repo, appCtx.StreamsDone())
	NewStateRouter(publicRouter, appCtx.Presenter)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
