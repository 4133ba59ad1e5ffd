package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/middleware"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/projector"
	"github.com/pawwatch/api/internal/store"
)

type ReportHandler struct {
	store *store.ReportStore
}

func NewReportHandler(s *store.ReportStore) *ReportHandler {
	return &ReportHandler{store: s}
}

type LocateRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

// List returns the list panel for ?status= and an optional ?bbox= viewport
func (h *ReportHandler) List(c *gin.Context) {
	filter, reports, ok := projectQuery(c, h.store)
	if !ok {
		return
	}
	middleware.RecordProjection(string(filter), len(reports))

	c.JSON(http.StatusOK, gin.H{
		"filter":     filter,
		"data":       projector.ListItems(reports),
		"totalCount": len(reports),
	})
}

// Get returns one report with its popup content ("Details")
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	report, ok := h.store.ByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report": report,
		"popup":  projector.PopupFor(report),
	})
}

// Stats returns per-status counts
func (h *ReportHandler) Stats(c *gin.Context) {
	counts := h.store.Counts()

	byStatus := make(gin.H, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    h.store.Len(),
		"byStatus": byStatus,
	})
}

// Locate formats a position as the form's location label when no address
// is known for it.
func (h *ReportHandler) Locate(c *gin.Context) {
	var req LocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}

	p := geo.Point{Lat: *req.Lat, Lng: *req.Lng}
	if err := p.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location":    p.Label(),
		"coordinates": p,
	})
}

// projectQuery applies ?status= and ?bbox= to the store. It writes the 400
// response itself and returns false on bad input.
func projectQuery(c *gin.Context, s *store.ReportStore) (model.Filter, []model.Report, bool) {
	filter, err := model.ParseFilter(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status. Use all, healthy, sick, or rabid"})
		return "", nil, false
	}

	reports := projector.Project(s.All(), filter)

	if raw := c.Query("bbox"); raw != "" {
		bound, err := geo.ParseBBox(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bbox: " + err.Error()})
			return "", nil, false
		}
		reports = projector.WithinBounds(reports, bound)
	}

	return filter, reports, true
}
