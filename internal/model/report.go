package model

import (
	"errors"
	"fmt"
	"strings"
)

// DateLayout is the ISO 8601 date format used for ReportedDate.
const DateLayout = "2006-01-02"

type Report struct {
	ID           int64   `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Status       Status  `json:"status" yaml:"status"`
	Location     string  `json:"location" yaml:"location"`
	Lat          float64 `json:"lat" yaml:"lat"`
	Lng          float64 `json:"lng" yaml:"lng"`
	Description  string  `json:"description" yaml:"description"`
	ReportedDate string  `json:"reportedDate" yaml:"reportedDate"`
	Reporter     string  `json:"reporter" yaml:"reporter"`
	Photo        *string `json:"photo" yaml:"photo,omitempty"`
}

// Status of a reported dog
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusSick    Status = "sick"
	StatusRabid   Status = "rabid"
)

// Statuses lists every known status in badge order.
var Statuses = []Status{StatusHealthy, StatusSick, StatusRabid}

var ErrUnknownStatus = errors.New("unknown status")

// ParseStatus accepts a status value case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusHealthy:
		return StatusHealthy, nil
	case StatusSick:
		return StatusSick, nil
	case StatusRabid:
		return StatusRabid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Color returns the marker fill colour for the status.
func (s Status) Color() string {
	switch s {
	case StatusHealthy:
		return "#2ecc71"
	case StatusSick:
		return "#f39c12"
	case StatusRabid:
		return "#e74c3c"
	default:
		return "#3498db"
	}
}

// Label is the badge text shown on markers and list items.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}
