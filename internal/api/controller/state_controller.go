package controller

import (
	"net/http"

	"github.com/bassista/atlas/internal/presenter"
	"github.com/gin-gonic/gin"
)

// StatePresenter is the presenter surface exposed over HTTP.
type StatePresenter interface {
	Current() presenter.State
	Refresh()
}

type StateController struct {
	presenter StatePresenter
}

func NewStateController(p StatePresenter) *StateController {
	return &StateController{presenter: p}
}

// Current handles GET /state.
func (sc *StateController) Current(c *gin.Context) {
	c.JSON(http.StatusOK, sc.presenter.Current())
}

// Refresh handles POST /state/refresh. The refresh runs on the presenter goroutine.
func (sc *StateController) Refresh(c *gin.Context) {
	sc.presenter.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"message": "refresh requested"})
}
