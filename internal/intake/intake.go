// Package intake validates new dog reports and commits them to the store
// after a simulated submission latency.
package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pawwatch/api/internal/clock"
	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/store"
)

const (
	DefaultDelay    = 2 * time.Second
	DefaultName     = "New Report"
	DefaultReporter = "Current User"
)

// DefaultCenter is used when the reporter's position is unknown.
var DefaultCenter = geo.Point{Lat: 6.9271, Lng: 79.8612}

var ErrSubmissionInFlight = errors.New("a submission is already in flight")

// Form is what the report form sends.
type Form struct {
	Location    string     `json:"location" validate:"required"`
	Status      string     `json:"status" validate:"required,dog_status"`
	Description string     `json:"description" validate:"required"`
	Coordinates *geo.Point `json:"coordinates,omitempty"`
}

type Config struct {
	Delay    time.Duration
	Center   geo.Point
	Name     string
	Reporter string
}

type Intake struct {
	store    *store.ReportStore
	clock    clock.Clock
	jitter   *geo.Jitterer
	validate *validator.Validate
	cfg      Config
	log      logrus.FieldLogger
	pending  sync.WaitGroup
}

func New(s *store.ReportStore, c clock.Clock, j *geo.Jitterer, cfg Config, log logrus.FieldLogger) *Intake {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Center == (geo.Point{}) {
		cfg.Center = DefaultCenter
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Reporter == "" {
		cfg.Reporter = DefaultReporter
	}
	return &Intake{
		store:    s,
		clock:    c,
		jitter:   j,
		validate: newValidator(),
		cfg:      cfg,
		log:      log,
	}
}

// Validate checks a form without submitting it.
func (in *Intake) Validate(f Form) (Form, error) {
	return validateForm(in.validate, f)
}

// Submit validates the form and schedules the report to be committed after
// the configured delay. Validation happens before anything is scheduled, so
// a failed submit leaves the store untouched. A nil gate disables the
// one-at-a-time check.
//
// onCommit runs on the timer goroutine right after the report is appended.
// Once accepted, a submission always commits.
func (in *Intake) Submit(gate *Gate, f Form, onCommit func(model.Report)) (*Submission, error) {
	form, err := in.Validate(f)
	if err != nil {
		return nil, err
	}

	if gate != nil {
		if err := gate.acquire(); err != nil {
			return nil, err
		}
	}

	sub := &Submission{
		ID:         uuid.NewString(),
		Form:       form,
		AcceptedAt: in.clock.Now(),
		done:       make(chan struct{}),
	}

	in.pending.Add(1)
	in.clock.AfterFunc(in.cfg.Delay, func() {
		defer in.pending.Done()
		if gate != nil {
			defer gate.release()
		}

		r := in.store.Append(in.build(form))
		sub.complete(r)

		in.log.WithFields(logrus.Fields{
			"submission_id": sub.ID,
			"report_id":     r.ID,
			"status":        r.Status,
			"waited":        in.clock.Now().Sub(sub.AcceptedAt).String(),
		}).Info("report committed")

		if onCommit != nil {
			onCommit(r)
		}
	})

	in.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"delay":         in.cfg.Delay.String(),
	}).Debug("report accepted")

	return sub, nil
}

// Wait blocks until every accepted submission has committed or ctx is done.
func (in *Intake) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		in.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (in *Intake) build(f Form) model.Report {
	pos := in.jitter.Around(in.cfg.Center)
	if f.Coordinates != nil {
		pos = *f.Coordinates
	}

	return model.Report{
		Name:         in.cfg.Name,
		Status:       model.Status(f.Status),
		Location:     f.Location,
		Lat:          pos.Lat,
		Lng:          pos.Lng,
		Description:  f.Description,
		ReportedDate: in.clock.Now().UTC().Format(model.DateLayout),
		Reporter:     in.cfg.Reporter,
	}
}

// Submission is an accepted report waiting out the submission delay.
type Submission struct {
	ID         string
	Form       Form
	AcceptedAt time.Time

	done   chan struct{}
	mu     sync.Mutex
	report model.Report
}

func (s *Submission) complete(r model.Report) {
	s.mu.Lock()
	s.report = r
	s.mu.Unlock()
	close(s.done)
}

// Done is closed once the report has been committed.
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Report returns the committed report, if the submission has completed.
func (s *Submission) Report() (model.Report, bool) {
	select {
	case <-s.done:
	default:
		return model.Report{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, true
}

// Wait blocks until the report is committed. Giving up on ctx does not stop
// the commit.
func (s *Submission) Wait(ctx context.Context) (model.Report, error) {
	select {
	case <-s.done:
		r, _ := s.Report()
		return r, nil
	case <-ctx.Done():
		return model.Report{}, ctx.Err()
	}
}

// Gate admits one submission at a time, like a submit button that stays
// disabled until the previous submission completes.
type Gate struct {
	mu   sync.Mutex
	busy bool
}

func (g *Gate) acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return ErrSubmissionInFlight
	}
	g.busy = true
	return nil
}

func (g *Gate) release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

// Busy reports whether a submission is waiting to commit.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
