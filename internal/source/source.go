// Package source loads the immutable per-run input snapshots: the survey
// observation tables, tagging metadata, sampling-area records, plot polygon
// areas, and the external long-form mass-estimate table.
package source

import (
	"errors"
	"fmt"
	"strconv"

	"vegcensus/pkg/domain"
)

// ErrMissingObservations reports that no observation snapshot exists for a
// requested site. This is fatal for that site only.
var ErrMissingObservations = errors.New("no observation snapshot for site")

// Inputs is one site's complete input snapshot, ready for the pipeline.
type Inputs struct {
	SiteID       string
	Observations []domain.Observation
	Tags         []domain.TagRecord
	Sampling     []domain.SamplingEvent
	PlotAreas    map[string]domain.PlotArea
	Masses       map[MassKey]domain.MassSet
}

// YearFromEventID extracts the survey year from an event identifier. Event
// identifiers carry the 4-digit year as their trailing characters
// ("vst_SJER_2015").
func YearFromEventID(eventID string) (int, error) {
	if len(eventID) < 4 {
		return 0, fmt.Errorf("event id %q too short to carry a year", eventID)
	}
	year, err := strconv.Atoi(eventID[len(eventID)-4:])
	if err != nil {
		return 0, fmt.Errorf("event id %q does not end in a year: %w", eventID, err)
	}
	return year, nil
}
