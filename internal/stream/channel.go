// Package stream queues the page updates a session produces until the
// browser's event stream picks them up.
package stream

import (
	"context"
	"sync"

	"github.com/pawwatch/api/internal/board"
	"github.com/pawwatch/api/internal/projector"
)

// Event names sent to the browser.
const (
	EventMarkers = "markers"
	EventList    = "list"
	EventPopup   = "popup"
	EventNotify  = "notify"
)

// DefaultCapacity bounds the queue of a slow or absent reader.
const DefaultCapacity = 256

type Event struct {
	Name string
	Data any
}

type PopupData struct {
	ReportID int64 `json:"reportId"`
	Open     bool  `json:"open"`
}

type NotifyData struct {
	Message  string         `json:"message"`
	Severity board.Severity `json:"severity"`
}

// Channel is a board.Outbound backed by an in-memory queue. A redraw
// replaces any redraw of the same view still waiting in the queue, since
// only the latest one matters. When the queue is full the oldest event is
// dropped.
type Channel struct {
	mu       sync.Mutex
	queue    []Event
	capacity int
	dropped  int
	closed   bool
	signal   chan struct{}
	done     chan struct{}
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

var _ board.Outbound = (*Channel)(nil)

func (c *Channel) RenderMarkers(markers []projector.Marker) {
	c.replace(Event{Name: EventMarkers, Data: markers})
}

func (c *Channel) RenderList(items []projector.ListItem) {
	c.replace(Event{Name: EventList, Data: items})
}

func (c *Channel) OpenPopup(reportID int64) {
	c.push(Event{Name: EventPopup, Data: PopupData{ReportID: reportID, Open: true}})
}

func (c *Channel) ClosePopup(reportID int64) {
	c.push(Event{Name: EventPopup, Data: PopupData{ReportID: reportID}})
}

func (c *Channel) Notify(message string, severity board.Severity) {
	c.push(Event{Name: EventNotify, Data: NotifyData{Message: message, Severity: severity}})
}

func (c *Channel) replace(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	kept := c.queue[:0]
	for _, q := range c.queue {
		if q.Name != e.Name {
			kept = append(kept, q)
		}
	}
	c.queue = kept
	c.enqueue(e)
}

func (c *Channel) push(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.enqueue(e)
}

// enqueue appends e and wakes the reader. Callers hold c.mu.
func (c *Channel) enqueue(e Event) {
	if len(c.queue) >= c.capacity {
		c.queue = c.queue[1:]
		c.dropped++
	}
	c.queue = append(c.queue, e)
	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Next returns the oldest queued event, waiting for one if the queue is
// empty. It returns false once the channel is closed and drained, or when
// ctx is done.
func (c *Channel) Next(ctx context.Context) (Event, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			e := c.queue[0]
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return e, true
		}
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return Event{}, false
		}

		select {
		case <-c.signal:
		case <-c.done:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// Pending returns the number of queued events.
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Dropped returns how many events were discarded because the queue was full.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting events. Events already queued can still be read.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

