// Package geo holds coordinate helpers shared by intake and the projector.
package geo

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/paulmach/orb"
)

// JitterSpan is the full width, in degrees, of the random offset applied
// around the fallback centre. Offsets fall within ±JitterSpan/2.
const JitterSpan = 0.1

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Point is a lat/lng pair. orb stores longitude first.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, p.Lat, p.Lng)
	}
	return nil
}

// Label formats the point the way the report form does when reverse
// geocoding is unavailable.
func (p Point) Label() string {
	return fmt.Sprintf("%.6f, %.6f", p.Lat, p.Lng)
}

// Jitterer spreads reports without a known position around a centre so
// their markers do not stack. The offset is cosmetic only.
type Jitterer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewJitterer(seed int64) *Jitterer {
	return &Jitterer{rnd: rand.New(rand.NewSource(seed))}
}

// Around returns center moved by up to ±JitterSpan/2 on each axis.
func (j *Jitterer) Around(center Point) Point {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Point{
		Lat: center.Lat + (j.rnd.Float64()-0.5)*JitterSpan,
		Lng: center.Lng + (j.rnd.Float64()-0.5)*JitterSpan,
	}
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat".
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 numbers, got %d", len(parts))
	}

	var v [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		v[i] = f
	}

	if v[2] < v[0] || v[3] < v[1] {
		return orb.Bound{}, errors.New("bbox max must be >= min")
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
