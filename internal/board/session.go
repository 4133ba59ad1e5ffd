package board

import (
	"sync"
	"time"

	"github.com/pawwatch/api/internal/intake"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/projector"
	"github.com/pawwatch/api/internal/selection"
)

// Severity of a notification shown to the visitor.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Outbound is everything the core asks the page to draw. Calls are
// fire-and-forget; nothing they return is used.
type Outbound interface {
	projector.Renderer
	selection.Popups
	Notify(message string, severity Severity)
}

// Session is one visitor's page: its active filter, open popup and submit
// button state. The report store itself is shared.
type Session struct {
	ID string

	mu        sync.Mutex
	filter    model.Filter
	shown     []model.Report
	selection *selection.Coordinator
	gate      *intake.Gate
	out       Outbound
	lastSeen  time.Time
}

// View is a snapshot of what the session currently shows.
type View struct {
	SessionID  string               `json:"sessionId"`
	Filter     model.Filter         `json:"filter"`
	Markers    []projector.Marker   `json:"markers"`
	List       []projector.ListItem `json:"list"`
	OpenPopup  *int64               `json:"openPopup"`
	Submitting bool                 `json:"submitting"`
}

// redraw rebuilds both views from records. If the open popup's report is no
// longer shown, the popup is closed with it. Callers hold s.mu.
func (s *Session) redraw(records []model.Report) {
	s.shown = projector.Refresh(records, s.filter, s.out)

	if id, ok := s.selection.Current(); ok && !s.showing(id) {
		s.selection.Close()
	}
}

func (s *Session) showing(reportID int64) bool {
	for _, r := range s.shown {
		if r.ID == reportID {
			return true
		}
	}
	return false
}

func (s *Session) view() View {
	v := View{
		SessionID:  s.ID,
		Filter:     s.filter,
		Markers:    projector.Markers(s.shown),
		List:       projector.ListItems(s.shown),
		Submitting: s.gate.Busy(),
	}
	if id, ok := s.selection.Current(); ok {
		v.OpenPopup = &id
	}
	return v
}

func (s *Session) touch(now time.Time) {
	s.lastSeen = now
}
