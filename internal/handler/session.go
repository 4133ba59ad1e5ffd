package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pawwatch/api/internal/board"
	"github.com/pawwatch/api/internal/intake"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/store"
	"github.com/pawwatch/api/internal/stream"
)

type SessionHandler struct {
	board *board.Board
	log   logrus.FieldLogger
}

func NewSessionHandler(b *board.Board, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{board: b, log: log}
}

type FilterRequest struct {
	Filter string `json:"filter"`
}

// Create opens a visitor session showing every report
func (h *SessionHandler) Create(c *gin.Context) {
	s := h.board.Open(stream.NewChannel(stream.DefaultCapacity))

	view, err := h.board.View(s.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *SessionHandler) View(c *gin.Context) {
	view, err := h.board.View(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete ends a session and its event stream
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.board.Close(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetFilter switches the filter buttons
func (h *SessionHandler) SetFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	filter, err := model.ParseFilter(req.Filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter. Use all, healthy, sick, or rabid"})
		return
	}

	view, err := h.board.OnFilterSelected(c.Param("id"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitReport accepts the report form and answers once the report is
// committed. If the caller goes away first, the report still commits.
func (h *SessionHandler) SubmitReport(c *gin.Context) {
	var form intake.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sub, err := h.board.OnReportFormSubmitted(c.Param("id"), form)
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := sub.Wait(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusAccepted, gin.H{"submissionId": sub.ID})
		return
	}
	c.JSON(http.StatusCreated, report)
}

// ClickMarker opens the report's detail popup
func (h *SessionHandler) ClickMarker(c *gin.Context) {
	reportID, err := strconv.ParseInt(c.Param("reportId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return
	}

	report, err := h.board.OnMarkerClicked(c.Param("id"), reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SessionHandler) ClosePopup(c *gin.Context) {
	if err := h.board.OnPopupClosed(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) respondError(c *gin.Context, err error) {
	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": board.MsgFillRequired, "fields": ve.Fields})
	case errors.Is(err, board.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, store.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
	case errors.Is(err, board.ErrReportNotShown):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, intake.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": board.MsgSubmitInProgress})
	default:
		h.log.WithError(err).Error("session request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
