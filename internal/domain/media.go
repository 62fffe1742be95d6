package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for media date ranges.
const DateLayout = "2006-01-02"

// MediaAsset is the metadata record for an uploaded image: when it should
// be displayed and which playlists carry it. The image bytes themselves
// live outside this system.
type MediaAsset struct {
	Filename  string   `json:"filename"`
	Start     string   `json:"start"` // inclusive, YYYY-MM-DD
	End       string   `json:"end"`   // inclusive, YYYY-MM-DD
	Playlists []string `json:"playlists"`
}

// Validate checks the date range is well-formed and ordered.
func (m *MediaAsset) Validate() error {
	start, err := time.Parse(DateLayout, m.Start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", m.Start, err)
	}
	end, err := time.Parse(DateLayout, m.End)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", m.End, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", m.End, m.Start)
	}
	return nil
}

// ActiveOn reports whether the asset should be displayed on the given day.
// Malformed dates return an error rather than a silent exclusion so the
// caller can decide to log and skip.
func (m *MediaAsset) ActiveOn(day time.Time) (bool, error) {
	start, err := time.Parse(DateLayout, m.Start)
	if err != nil {
		return false, fmt.Errorf("invalid start date %q: %w", m.Start, err)
	}
	end, err := time.Parse(DateLayout, m.End)
	if err != nil {
		return false, fmt.Errorf("invalid end date %q: %w", m.End, err)
	}

	d := day.Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end), nil
}
