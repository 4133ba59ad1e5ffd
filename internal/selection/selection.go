// Package selection keeps track of the marker whose detail popup is open.
package selection

// Popups is the map-side collaborator that shows and hides detail popups.
type Popups interface {
	OpenPopup(reportID int64)
	ClosePopup(reportID int64)
}

// Coordinator enforces that at most one popup is open. It is not safe for
// concurrent use; the owning session serialises calls.
type Coordinator struct {
	popups  Popups
	current *int64
}

func NewCoordinator(p Popups) *Coordinator {
	return &Coordinator{popups: p}
}

// Open shows the popup for reportID, closing the one already open first.
// Opening the popup that is already open is a no-op.
func (c *Coordinator) Open(reportID int64) {
	if c.current != nil {
		if *c.current == reportID {
			return
		}
		c.popups.ClosePopup(*c.current)
	}
	id := reportID
	c.current = &id
	c.popups.OpenPopup(id)
}

// Close handles an external close of the open popup, if any.
func (c *Coordinator) Close() {
	if c.current == nil {
		return
	}
	id := *c.current
	c.current = nil
	c.popups.ClosePopup(id)
}

// Current returns the report whose popup is open.
func (c *Coordinator) Current() (int64, bool) {
	if c.current == nil {
		return 0, false
	}
	return *c.current, true
}
