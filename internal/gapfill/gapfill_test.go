package gapfill

import (
	"math"
	"testing"

	"vegcensus/pkg/domain"
)

func obs(id string, year int, diameter domain.Quantity) domain.IndividualYear {
	return domain.IndividualYear{
		IndividualID: id,
		PlotID:       "PLOT_001",
		Year:         year,
		StemDiameter: diameter,
	}
}

func TestBuildGridCrossProduct(t *testing.T) {
	observed := []domain.IndividualYear{
		obs("A", 2015, domain.Q(12)),
		obs("A", 2017, domain.Q(14)),
		obs("B", 2015, domain.Q(3)),
	}
	grid := BuildGrid("PLOT_001", []int{2015, 2016, 2017}, observed)
	if len(grid) != 6 {
		t.Fatalf("expected 6 cells, got %d", len(grid))
	}
	counts := map[domain.Provenance]int{}
	for _, c := range grid {
		counts[c.Provenance]++
		if c.PlotID != "PLOT_001" {
			t.Fatalf("cell lost plot id: %+v", c)
		}
	}
	if counts[domain.ProvenanceOriginal] != 3 || counts[domain.ProvenanceFilled] != 3 {
		t.Fatalf("provenance counts = %v", counts)
	}
}

func TestBuildGridKeepsMultiStemRows(t *testing.T) {
	observed := []domain.IndividualYear{
		obs("A", 2015, domain.Q(12)),
		obs("A", 2015, domain.Q(8)), // second stem, same year
	}
	grid := BuildGrid("PLOT_001", []int{2015, 2016}, observed)
	if len(grid) != 3 {
		t.Fatalf("expected 2 original stems + 1 filled year, got %d", len(grid))
	}
}

func TestBuildGridDropsYearsOutsideSamplingList(t *testing.T) {
	observed := []domain.IndividualYear{
		obs("A", 2015, domain.Q(12)),
		obs("A", 2019, domain.Q(13)), // plot not surveyed in 2019
	}
	grid := BuildGrid("PLOT_001", []int{2015}, observed)
	if len(grid) != 1 || grid[0].Year != 2015 {
		t.Fatalf("unexpected grid: %+v", grid)
	}
}

func TestCarryAttributesPriorThenLater(t *testing.T) {
	cells := []domain.IndividualYear{
		{IndividualID: "A", Year: 2015, Provenance: domain.ProvenanceFilled},
		{IndividualID: "A", Year: 2016, Provenance: domain.ProvenanceOriginal, GrowthForm: "sapling", StemDiameter: domain.Q(4)},
		{IndividualID: "A", Year: 2017, Provenance: domain.ProvenanceFilled},
	}
	CarryAttributes(cells)
	if cells[0].GrowthForm != "sapling" || !cells[0].StemDiameter.Equal(domain.Q(4)) {
		t.Fatalf("2015 should back-fill from 2016: %+v", cells[0])
	}
	if cells[2].GrowthForm != "sapling" || !cells[2].StemDiameter.Equal(domain.Q(4)) {
		t.Fatalf("2017 should carry forward from 2016: %+v", cells[2])
	}
}

func TestCarryAttributesNeverTouchesOriginalCells(t *testing.T) {
	cells := []domain.IndividualYear{
		{IndividualID: "A", Year: 2015, Provenance: domain.ProvenanceOriginal, GrowthForm: "sapling", StemDiameter: domain.Q(4)},
		{IndividualID: "A", Year: 2016, Provenance: domain.ProvenanceOriginal}, // observed, but fields missing
	}
	CarryAttributes(cells)
	if cells[1].GrowthForm != "" || cells[1].StemDiameter.Valid {
		t.Fatalf("original cell must keep its own missing values: %+v", cells[1])
	}
}

func withMass(c domain.IndividualYear, est domain.Estimator, v float64) domain.IndividualYear {
	c.Mass.Set(est, domain.Q(v))
	return c
}

func TestFillMassesZeroObservations(t *testing.T) {
	cells := []domain.IndividualYear{
		{IndividualID: "A", Year: 2015, Provenance: domain.ProvenanceFilled},
		{IndividualID: "A", Year: 2016, Provenance: domain.ProvenanceFilled},
	}
	FillMasses(cells)
	for _, c := range cells {
		if c.Mass.AnyValid() {
			t.Fatalf("no observations must leave every year missing: %+v", c)
		}
	}
}

func TestFillMassesSingleObservationBroadcasts(t *testing.T) {
	cells := []domain.IndividualYear{
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2015}, domain.EstimatorJenkins, 42.5),
		{IndividualID: "A", Year: 2016},
		{IndividualID: "A", Year: 2018},
	}
	FillMasses(cells)
	for _, c := range cells {
		if got := c.Mass.Get(domain.EstimatorJenkins); !got.Equal(domain.Q(42.5)) {
			t.Fatalf("year %d = %v, want 42.5", c.Year, got)
		}
	}
}

func TestFillMassesLinearTrend(t *testing.T) {
	cells := []domain.IndividualYear{
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2015}, domain.EstimatorJenkins, 10),
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2017}, domain.EstimatorJenkins, 20),
		{IndividualID: "A", Year: 2016},
		{IndividualID: "A", Year: 2019},
	}
	FillMasses(cells)
	if got := cells[2].Mass.Get(domain.EstimatorJenkins); math.Abs(got.Value-15) > 1e-9 {
		t.Fatalf("2016 interpolation = %v, want 15", got)
	}
	if got := cells[3].Mass.Get(domain.EstimatorJenkins); math.Abs(got.Value-30) > 1e-9 {
		t.Fatalf("2019 extrapolation = %v, want 30", got)
	}
}

func TestFillMassesClampsNegativePredictions(t *testing.T) {
	cells := []domain.IndividualYear{
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2015}, domain.EstimatorJenkins, 20),
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2016}, domain.EstimatorJenkins, 10),
		{IndividualID: "A", Year: 2020},
	}
	FillMasses(cells)
	if got := cells[2].Mass.Get(domain.EstimatorJenkins); !got.Valid || got.Value != 0 {
		t.Fatalf("declining trend must clamp to 0, got %v", got)
	}
}

func TestFillMassesSameYearObservationsUseMean(t *testing.T) {
	cells := []domain.IndividualYear{
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2015}, domain.EstimatorJenkins, 10),
		withMass(domain.IndividualYear{IndividualID: "A", Year: 2015}, domain.EstimatorJenkins, 30),
		{IndividualID: "A", Year: 2016},
	}
	FillMasses(cells)
	if got := cells[2].Mass.Get(domain.EstimatorJenkins); math.Abs(got.Value-20) > 1e-9 {
		t.Fatalf("same-year fill = %v, want mean 20", got)
	}
}

func TestFilterSpikesFlagsImpossibleSpike(t *testing.T) {
	mk := func(year int, d float64) domain.IndividualYear {
		c := obs("A", year, domain.Q(d))
		c.Provenance = domain.ProvenanceOriginal
		c.Mass.Set(domain.EstimatorJenkins, domain.Q(d*2))
		return c
	}
	cells := []domain.IndividualYear{mk(2017, 1.6), mk(2018, 36.7), mk(2019, 2.0)}
	if n := FilterSpikes(cells, DefaultGrowthThreshold, DefaultShrinkThreshold); n != 1 {
		t.Fatalf("expected 1 flagged cell, got %d", n)
	}
	if cells[1].Provenance != domain.ProvenanceOutlier {
		t.Fatalf("2018 should be OUTLIER, got %s", cells[1].Provenance)
	}
	if cells[1].Mass.AnyValid() {
		t.Fatalf("flagged cell must have all estimator values nulled")
	}
	if cells[0].Provenance != domain.ProvenanceOriginal || cells[2].Provenance != domain.ProvenanceOriginal {
		t.Fatalf("neighbors must stay ORIGINAL")
	}
}

func TestFilterSpikesRespectsRaisedThresholds(t *testing.T) {
	mk := func(year int, d float64) domain.IndividualYear {
		c := obs("A", year, domain.Q(d))
		c.Provenance = domain.ProvenanceOriginal
		return c
	}
	cells := []domain.IndividualYear{mk(2017, 1.6), mk(2018, 36.7), mk(2019, 2.0)}
	if n := FilterSpikes(cells, 50, 50); n != 0 {
		t.Fatalf("raised thresholds should flag nothing, got %d", n)
	}
}

func TestFilterSpikesNeedsThreeObservedYears(t *testing.T) {
	mk := func(year int, d float64, p domain.Provenance) domain.IndividualYear {
		c := obs("A", year, domain.Q(d))
		c.Provenance = p
		return c
	}
	cells := []domain.IndividualYear{
		mk(2017, 1.6, domain.ProvenanceOriginal),
		mk(2018, 36.7, domain.ProvenanceOriginal),
		mk(2019, 2.0, domain.ProvenanceFilled), // interpolated, not evidence
	}
	if n := FilterSpikes(cells, DefaultGrowthThreshold, DefaultShrinkThreshold); n != 0 {
		t.Fatalf("filled neighbor must not support a flag, got %d", n)
	}
}

func TestFilterSpikesUsesMaxStemPerYear(t *testing.T) {
	mk := func(year int, d float64) domain.IndividualYear {
		c := obs("A", year, domain.Q(d))
		c.Provenance = domain.ProvenanceOriginal
		return c
	}
	// The 2018 spike stem is accompanied by a small stem; max-per-year still
	// sees the spike and both 2018 cells are flagged.
	cells := []domain.IndividualYear{
		mk(2017, 1.6),
		mk(2018, 36.7),
		mk(2018, 1.8),
		mk(2019, 2.0),
	}
	if n := FilterSpikes(cells, DefaultGrowthThreshold, DefaultShrinkThreshold); n != 2 {
		t.Fatalf("expected both 2018 stems flagged, got %d", n)
	}
}
