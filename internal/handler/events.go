package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pawwatch/api/internal/board"
	"github.com/pawwatch/api/internal/stream"
)

// HeartbeatInterval is how often an idle event stream sends a ping. Each
// ping also keeps the session from being swept.
const HeartbeatInterval = 15 * time.Second

type EventsHandler struct {
	board     *board.Board
	heartbeat time.Duration
	log       logrus.FieldLogger
}

func NewEventsHandler(b *board.Board, heartbeat time.Duration, log logrus.FieldLogger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = HeartbeatInterval
	}
	return &EventsHandler{board: b, heartbeat: heartbeat, log: log}
}

// Stream sends the session's redraws, popups and notifications as
// server-sent events until the client disconnects or the session ends.
func (h *EventsHandler) Stream(c *gin.Context) {
	sessionID := c.Param("id")

	out, err := h.board.Outbound(sessionID)
	if errors.Is(err, board.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	ch, ok := out.(*stream.Channel)
	if err != nil || !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session has no event stream"})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	events := make(chan stream.Event)
	go func() {
		defer close(events)
		for {
			e, ok := ch.Next(ctx)
			if !ok {
				return
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	h.log.WithField("session_id", sessionID).Debug("event stream opened")

	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(e.Name, e.Data)
			return true
		case <-ticker.C:
			if err := h.board.Touch(sessionID); err != nil {
				return false
			}
			c.SSEvent("ping", gin.H{"time": time.Now().UTC().Format(time.RFC3339)})
			return true
		case <-ctx.Done():
			return false
		}
	})

	h.log.WithField("session_id", sessionID).Debug("event stream closed")
}
