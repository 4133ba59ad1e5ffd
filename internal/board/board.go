// Package board runs visitor sessions against the shared report store. It
// receives the page events (filter clicks, form submits, marker clicks) and
// keeps every session's map and list in step with the store.
package board

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pawwatch/api/internal/clock"
	"github.com/pawwatch/api/internal/intake"
	"github.com/pawwatch/api/internal/middleware"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/selection"
	"github.com/pawwatch/api/internal/store"
)

const (
	MsgFillRequired     = "Please fill in all required fields"
	MsgSubmitted        = "Report submitted successfully! Thank you for helping your community."
	MsgSubmitInProgress = "Your previous report is still being submitted"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrReportNotShown  = errors.New("report is not shown on this map")
)

type Board struct {
	store  *store.ReportStore
	intake *intake.Intake
	clock  clock.Clock
	log    logrus.FieldLogger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func New(s *store.ReportStore, in *intake.Intake, c clock.Clock, log logrus.FieldLogger) *Board {
	return &Board{
		store:    s,
		intake:   in,
		clock:    c,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session showing every report and draws it on out.
func (b *Board) Open(out Outbound) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		filter:    model.FilterAll,
		selection: selection.NewCoordinator(out),
		gate:      &intake.Gate{},
		out:       out,
		lastSeen:  b.clock.Now(),
	}

	// Registered before the first draw so a commit landing in between
	// redraws this session too.
	b.mu.Lock()
	b.sessions[s.ID] = s
	n := len(b.sessions)
	b.mu.Unlock()

	s.mu.Lock()
	s.redraw(b.store.All())
	s.mu.Unlock()

	middleware.SetActiveSessions(n)
	b.log.WithField("session_id", s.ID).Info("session opened")
	return s
}

func (b *Board) session(id string) (*Session, error) {
	b.mu.RLock()
	s, ok := b.sessions[id]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Outbound returns the channel the session draws on.
func (b *Board) Outbound(sessionID string) (Outbound, error) {
	s, err := b.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.out, nil
}

// View returns what the session currently shows.
func (b *Board) View(sessionID string) (View, error) {
	s, err := b.session(sessionID)
	if err != nil {
		return View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(b.clock.Now())
	return s.view(), nil
}

// OnFilterSelected switches the session's filter and redraws both views.
func (b *Board) OnFilterSelected(sessionID string, f model.Filter) (View, error) {
	s, err := b.session(sessionID)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(b.clock.Now())

	s.filter = f
	s.redraw(b.store.All())
	middleware.RecordProjection(string(f), len(s.shown))

	return s.view(), nil
}

// OnMarkerClicked opens the report's popup, closing any other one.
func (b *Board) OnMarkerClicked(sessionID string, reportID int64) (model.Report, error) {
	s, err := b.session(sessionID)
	if err != nil {
		return model.Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(b.clock.Now())

	if !s.showing(reportID) {
		if _, ok := b.store.ByID(reportID); !ok {
			return model.Report{}, store.ErrReportNotFound
		}
		return model.Report{}, ErrReportNotShown
	}

	s.selection.Open(reportID)
	r, _ := b.store.ByID(reportID)
	return r, nil
}

// OnPopupClosed handles the visitor closing the open popup.
func (b *Board) OnPopupClosed(sessionID string) error {
	s, err := b.session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(b.clock.Now())
	s.selection.Close()
	return nil
}

// OnReportFormSubmitted hands the form to intake. Validation errors are
// returned at once and shown to the visitor; the store is not touched. When
// the submission commits, every session is redrawn with its own filter, so a
// new report that does not match the submitter's active filter stays hidden.
func (b *Board) OnReportFormSubmitted(sessionID string, f intake.Form) (*intake.Submission, error) {
	s, err := b.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(b.clock.Now())

	sub, err := b.intake.Submit(s.gate, f, func(r model.Report) {
		middleware.RecordReportSubmitted(string(r.Status))
		b.refreshAll()
		b.notify(sessionID, MsgSubmitted, SeveritySuccess)
	})

	var ve *intake.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.RecordValidationFailure(ve.FieldNames())
		s.out.Notify(MsgFillRequired, SeverityError)
		return nil, err
	case errors.Is(err, intake.ErrSubmissionInFlight):
		middleware.RecordSubmissionRejected("in_flight")
		s.out.Notify(MsgSubmitInProgress, SeverityWarning)
		return nil, err
	case err != nil:
		return nil, err
	}

	b.log.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"submission_id": sub.ID,
	}).Info("report submission accepted")
	return sub, nil
}

// notify sends a message to one session, if it is still open.
func (b *Board) notify(sessionID, msg string, sev Severity) {
	s, err := b.session(sessionID)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Notify(msg, sev)
}

// refreshAll redraws every session from the current store contents. Each
// session reads the store under its own lock, so a slower, older refresh
// can never overwrite a newer one.
func (b *Board) refreshAll() {
	b.mu.RLock()
	sessions := make([]*Session, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.RUnlock()

	for _, s := range sessions {
		s.mu.Lock()
		s.redraw(b.store.All())
		middleware.RecordProjection(string(s.filter), len(s.shown))
		s.mu.Unlock()
	}
}

// Touch marks the session as active without changing it.
func (b *Board) Touch(sessionID string) error {
	s, err := b.session(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.touch(b.clock.Now())
	s.mu.Unlock()
	return nil
}

// Close ends a session.
func (b *Board) Close(sessionID string) error {
	b.mu.Lock()
	s, ok := b.sessions[sessionID]
	if ok {
		delete(b.sessions, sessionID)
	}
	n := len(b.sessions)
	b.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	middleware.SetActiveSessions(n)
	closeOutbound(s)
	return nil
}

// CloseAll ends every session, ending their event streams.
func (b *Board) CloseAll() {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[string]*Session)
	b.mu.Unlock()

	for _, s := range sessions {
		closeOutbound(s)
	}
	middleware.SetActiveSessions(0)
}

// SweepIdle closes sessions not seen since before idle ago and returns how
// many were closed. Sessions with a submission in flight are kept.
func (b *Board) SweepIdle(idle time.Duration) int {
	cutoff := b.clock.Now().Add(-idle)

	b.mu.Lock()
	var stale []*Session
	for id, s := range b.sessions {
		s.mu.Lock()
		expired := s.lastSeen.Before(cutoff) && !s.gate.Busy()
		s.mu.Unlock()
		if expired {
			stale = append(stale, s)
			delete(b.sessions, id)
		}
	}
	n := len(b.sessions)
	b.mu.Unlock()

	for _, s := range stale {
		closeOutbound(s)
	}
	if len(stale) > 0 {
		middleware.SetActiveSessions(n)
	}
	return len(stale)
}

// Len returns the number of open sessions.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

func closeOutbound(s *Session) {
	if c, ok := s.out.(interface{ Close() }); ok {
		c.Close()
	}
}
