package controller

import (
	"net/http"
	"strconv"

	"github.com/bassista/atlas/internal/logger"
	"github.com/bassista/atlas/internal/model"
	"github.com/bassista/atlas/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// defaultRings is used by GET /partners/near when rings is omitted.
const defaultRings = 1

// PartnerController serves refreshes and cache reads of partners and delivery stations.
type PartnerController struct {
	repo repository.SyncRepository
	log  *logrus.Entry
}

func NewPartnerController(repo repository.SyncRepository) *PartnerController {
	return &PartnerController{repo: repo, log: logger.WithComponent("partner-controller")}
}

// RefreshPartners handles POST /refresh/partners.
func (pc *PartnerController) RefreshPartners(c *gin.Context) {
	partners, err := pc.repo.RefreshPartners(c.Request.Context())
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, partners)
}

// RefreshStations handles POST /refresh/stations.
func (pc *PartnerController) RefreshStations(c *gin.Context) {
	stations, err := pc.repo.RefreshDeliveryStations(c.Request.Context())
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, stations)
}

type refreshAllResponse struct {
	Partners         []model.Partner         `json:"partners"`
	DeliveryStations []model.DeliveryStation `json:"deliveryStations"`
	Errors           []string                `json:"errors"`
}

// RefreshAll handles POST /refresh. A partial failure is still a 200 listing
// what failed; the request fails only when neither collection could be served.
func (pc *PartnerController) RefreshAll(c *gin.Context) {
	snap, err := pc.repo.RefreshAll(c.Request.Context())
	if err != nil && snap.Partners == nil && snap.DeliveryStations == nil {
		respondError(c, pc.log, err)
		return
	}
	if err != nil {
		pc.log.WithError(err).Warn("Refresh completed with errors")
	}

	resp := refreshAllResponse{
		Partners:         snap.Partners,
		DeliveryStations: snap.DeliveryStations,
		Errors:           errorMessages(err),
	}
	if resp.Partners == nil {
		resp.Partners = []model.Partner{}
	}
	if resp.DeliveryStations == nil {
		resp.DeliveryStations = []model.DeliveryStation{}
	}
	c.JSON(http.StatusOK, resp)
}

// Partners handles GET /partners, optionally filtered by ?status=.
func (pc *PartnerController) Partners(c *gin.Context) {
	var (
		partners []model.Partner
		err      error
	)
	if status, ok := c.GetQuery("status"); ok {
		partners, err = pc.repo.FilterPartnersByStatus(c.Request.Context(), status)
	} else {
		partners, err = pc.repo.Partners(c.Request.Context())
	}
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, partners)
}

// PartnerByID handles GET /partners/:id.
func (pc *PartnerController) PartnerByID(c *gin.Context) {
	p, err := pc.repo.PartnerByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Near handles GET /partners/near?lat=&lon=&rings=.
func (pc *PartnerController) Near(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be numbers"})
		return
	}
	rings := defaultRings
	if raw, ok := c.GetQuery("rings"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rings must be an integer"})
			return
		}
		rings = n
	}

	partners, err := pc.repo.PartnersNear(c.Request.Context(), lat, lon, rings)
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, partners)
}

// Stations handles GET /stations.
func (pc *PartnerController) Stations(c *gin.Context) {
	stations, err := pc.repo.DeliveryStations(c.Request.Context())
	if err != nil {
		respondError(c, pc.log, err)
		return
	}
	c.JSON(http.StatusOK, stations)
}
