package route

import (
	"github.com/bassista/atlas/internal/api/controller"
	"github.com/gin-gonic/gin"
)

func NewStateRouter(group *gin.RouterGroup, p controller.StatePresenter) {
	sc := controller.NewStateController(p)

	group.GET("state", sc.Current)
	group.POST("state/refresh", sc.Refresh)
}
