// Package projector derives the map markers and the list panel from the
// report store. Both views are always rebuilt from scratch; there is no
// incremental update path.
package projector

import (
	"github.com/paulmach/orb"

	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/model"
)

// Renderer receives full redraws of both views. Implementations replace
// whatever they showed before.
type Renderer interface {
	RenderMarkers(markers []Marker)
	RenderList(items []ListItem)
}

type Marker struct {
	ReportID int64     `json:"reportId"`
	Title    string    `json:"title"`
	Position geo.Point `json:"position"`
	Color    string    `json:"color"`
	Popup    Popup     `json:"popup"`
}

// Popup is the detail window content opened when a marker is clicked.
type Popup struct {
	Name        string `json:"name"`
	Badge       string `json:"badge"`
	BadgeColor  string `json:"badgeColor"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Reported    string `json:"reported"`
}

type ListItem struct {
	ReportID     int64        `json:"reportId"`
	Name         string       `json:"name"`
	Status       model.Status `json:"status"`
	Badge        string       `json:"badge"`
	Location     string       `json:"location"`
	ReportedDate string       `json:"reportedDate"`
	Position     geo.Point    `json:"position"`
}

// Project returns the reports that pass the filter, in store order.
func Project(records []model.Report, filter model.Filter) []model.Report {
	out := make([]model.Report, 0, len(records))
	for _, r := range records {
		if filter.Matches(r.Status) {
			out = append(out, r)
		}
	}
	return out
}

// WithinBounds keeps the reports whose position lies inside b.
func WithinBounds(records []model.Report, b orb.Bound) []model.Report {
	out := make([]model.Report, 0, len(records))
	for _, r := range records {
		if b.Contains(geo.Point{Lat: r.Lat, Lng: r.Lng}.Orb()) {
			out = append(out, r)
		}
	}
	return out
}

// Refresh projects records through filter and redraws both views.
func Refresh(records []model.Report, filter model.Filter, r Renderer) []model.Report {
	projected := Project(records, filter)
	r.RenderMarkers(Markers(projected))
	r.RenderList(ListItems(projected))
	return projected
}

func Markers(reports []model.Report) []Marker {
	markers := make([]Marker, 0, len(reports))
	for _, r := range reports {
		markers = append(markers, Marker{
			ReportID: r.ID,
			Title:    r.Name,
			Position: geo.Point{Lat: r.Lat, Lng: r.Lng},
			Color:    r.Status.Color(),
			Popup:    PopupFor(r),
		})
	}
	return markers
}

func PopupFor(r model.Report) Popup {
	return Popup{
		Name:        r.Name,
		Badge:       r.Status.Label(),
		BadgeColor:  r.Status.Color(),
		Location:    r.Location,
		Description: r.Description,
		Reported:    r.ReportedDate + " by " + r.Reporter,
	}
}

func ListItems(reports []model.Report) []ListItem {
	items := make([]ListItem, 0, len(reports))
	for _, r := range reports {
		items = append(items, ListItem{
			ReportID:     r.ID,
			Name:         r.Name,
			Status:       r.Status,
			Badge:        r.Status.Label(),
			Location:     r.Location,
			ReportedDate: r.ReportedDate,
			Position:     geo.Point{Lat: r.Lat, Lng: r.Lng},
		})
	}
	return items
}
