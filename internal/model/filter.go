package model

import (
	"fmt"
	"strings"
)

// Filter selects which reports are projected: every report, or one status.
type Filter string

const FilterAll Filter = "all"

// ParseFilter accepts "all" or a known status, in any case.
func ParseFilter(s string) (Filter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || Filter(s) == FilterAll {
		return FilterAll, nil
	}
	status, err := ParseStatus(s)
	if err != nil {
		return "", fmt.Errorf("invalid filter: %w", err)
	}
	return Filter(status), nil
}

func FilterFor(s Status) Filter {
	return Filter(s)
}

// Matches reports whether a report with the given status passes the filter.
func (f Filter) Matches(s Status) bool {
	return f == FilterAll || Status(f) == s
}
