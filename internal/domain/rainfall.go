package domain

import (
	"context"
	"fmt"
	"time"
)

// Location is a WGS-84 point with an optional influence radius used by
// area-averaging providers. A zero radius means a plain point query.
type Location struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_m,omitempty"`
}

// Fingerprint returns a stable cache-key component for the location.
// Coordinates are rounded to four decimal places (~11 m) so that requests for
// effectively the same point share a cache entry regardless of float noise.
func (l Location) Fingerprint() string {
	return fmt.Sprintf("%.4f,%.4f,%.0f", l.Lat, l.Lon, l.RadiusMeters)
}

// DateWindow is an inclusive range of calendar days. Both bounds are midnight
// UTC; there is no time-of-day component.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateWindow builds a window from two calendar days, truncating any
// time-of-day component. Start must not be after end.
func NewDateWindow(start, end time.Time) (DateWindow, error) {
	start, end = Midnight(start), Midnight(end)
	if start.After(end) {
		return DateWindow{}, fmt.Errorf("date window start %s is after end %s",
			start.Format(DateLayout), end.Format(DateLayout))
	}
	return DateWindow{Start: start, End: end}, nil
}

// SingleDay returns the one-day window covering the given calendar day.
func SingleDay(day time.Time) DateWindow {
	d := Midnight(day)
	return DateWindow{Start: d, End: d}
}

// TrailingWindow returns the days-long window ending on (and including) end.
func TrailingWindow(end time.Time, days int) DateWindow {
	e := Midnight(end)
	return DateWindow{Start: e.AddDate(0, 0, -(days - 1)), End: e}
}

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Days returns the number of calendar days the window covers, inclusive.
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start)/(24*time.Hour)) + 1
}

// SingleDay reports whether the window covers exactly one calendar day.
func (w DateWindow) SingleDay() bool {
	return w.Start.Equal(w.End)
}

// Key returns a stable cache-key component for the window.
func (w DateWindow) Key() string {
	return w.Start.Format(DateLayout) + ":" + w.End.Format(DateLayout)
}

func (w DateWindow) String() string {
	if w.SingleDay() {
		return w.Start.Format(DateLayout)
	}
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// Observation is the canonical normalized result of one provider answering one
// request. Immutable once created.
type Observation struct {
	Provider   string     `json:"provider"`
	Location   Location   `json:"location"`
	Window     DateWindow `json:"window"`
	PrecipMM   float64    `json:"precip_mm"`
	Partial    bool       `json:"partial,omitempty"`
	ResolvedAt time.Time  `json:"resolved_at"`
}

// Figure is one externally visible rainfall number with its provenance.
type Figure struct {
	PrecipMM float64    `json:"precip_mm"`
	Provider string     `json:"provider"`
	Window   DateWindow `json:"window"`
	Partial  bool       `json:"partial,omitempty"`
}

// FigureFrom converts a resolved Observation into its reportable form.
func FigureFrom(obs Observation) *Figure {
	return &Figure{
		PrecipMM: obs.PrecipMM,
		Provider: obs.Provider,
		Window:   obs.Window,
		Partial:  obs.Partial,
	}
}

// ResolvedRainfall is the result of one facade resolution: the daily total and
// the trailing accumulated total for the target date, each independently
// nullable with its own provenance. Produced fresh per request.
type ResolvedRainfall struct {
	Location    Location   `json:"location"`
	Date        time.Time  `json:"date"`
	Month       time.Month `json:"month"`
	Daily       *Figure    `json:"daily"`
	Accumulated *Figure    `json:"accumulated"`
	Diagnostics []Failure  `json:"diagnostics,omitempty"`
	ResolvedAt  time.Time  `json:"resolved_at"`
}

// Unresolved reports whether neither figure could be resolved.
func (r ResolvedRainfall) Unresolved() bool {
	return r.Daily == nil && r.Accumulated == nil
}

// Provider is the capability every upstream precipitation source implements.
// Implementations are stateless after construction and safe for concurrent
// use; any internal rate-limiting state must be concurrency-safe.
type Provider interface {
	// Name identifies the provider in provenance and diagnostics.
	Name() string

	// SupportsWindow reports whether the provider is structurally able to
	// answer for the given window (date-range coverage, processing lag).
	// The resolver skips unsupported providers without counting a hop.
	SupportsWindow(w DateWindow) bool

	// Fetch returns the precipitation total for the location and window.
	// Expected conditions (no coverage, ambiguous zero, empty result) are
	// returned as a *ProviderError with the matching kind, never as a panic
	// or a fabricated value.
	Fetch(ctx context.Context, loc Location, w DateWindow) (Observation, error)
}
