package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Sessions *SessionHandler
	Reports  *ReportHandler
	Export   *ExportHandler
	Events   *EventsHandler

	// SubmitLimit guards report submission. Nil means unlimited.
	SubmitLimit gin.HandlerFunc
}

func RegisterRoutes(r gin.IRouter, h Handlers) {
	api := r.Group("/api")
	{
		// Visitor sessions
		api.POST("/sessions", h.Sessions.Create)
		api.GET("/sessions/:id/view", h.Sessions.View)
		api.DELETE("/sessions/:id", h.Sessions.Delete)
		api.POST("/sessions/:id/filter", h.Sessions.SetFilter)
		api.POST("/sessions/:id/markers/:reportId/click", h.Sessions.ClickMarker)
		api.DELETE("/sessions/:id/popup", h.Sessions.ClosePopup)
		api.GET("/sessions/:id/events", h.Events.Stream)

		submit := []gin.HandlerFunc{h.Sessions.SubmitReport}
		if h.SubmitLimit != nil {
			submit = append([]gin.HandlerFunc{h.SubmitLimit}, submit...)
		}
		api.POST("/sessions/:id/reports", submit...)

		// Reports
		api.GET("/reports", h.Reports.List)
		api.GET("/reports/export", h.Export.Export)
		api.GET("/reports/:id", h.Reports.Get)
		api.GET("/stats", h.Reports.Stats)
		api.POST("/locate", h.Reports.Locate)
	}
}
