package domain

// PlotYearSummary is one output row of the plot summary table: the areal
// biomass densities and count diagnostics for one plot in one surveyed year.
type PlotYearSummary struct {
	SiteID string `json:"siteID"`
	PlotID string `json:"plotID"`
	Year   int    `json:"year"`

	PlotAreaM2       Quantity `json:"plotArea_m2"`
	TreeAreaM2       Quantity `json:"totalSampledAreaTrees_m2"`
	SmallWoodyAreaM2 Quantity `json:"totalSampledAreaShrubSapling_m2"`

	// Densities in Mg/ha per estimator. Zero means no qualifying
	// individuals; missing means qualifying individuals exist but none has a
	// usable estimate.
	Tree       MassSet `json:"tree"`
	SmallWoody MassSet `json:"small_woody"`
	Total      MassSet `json:"total"`

	NTrees        int `json:"n_trees"`
	NFilled       int `json:"n_filled"`
	NRemoved      int `json:"n_removed"`
	NNotQualified int `json:"n_not_qualified"`

	NSmallWoodyTotal    int `json:"n_small_woody_total"`
	NSmallWoodyMeasured int `json:"n_small_woody_measured"`

	NUnaccounted int `json:"n_unaccounted"`

	// AnnualGrowth is the per-estimator year-over-year density change rate
	// (Mg/ha/yr) since the previous survey of the same plot; missing for the
	// first survey year and whenever either endpoint density is missing.
	AnnualGrowth MassSet `json:"annual_growth"`
	// TrendGrowth is the per-estimator least-squares slope across all of the
	// plot's surveyed years (Mg/ha/yr); missing with fewer than two valid
	// survey points.
	TrendGrowth MassSet `json:"trend_growth"`
}

// UnaccountedStatus classifies why an individual is absent from the biomass
// calculations.
type UnaccountedStatus string

// Unaccounted-individual classifications.
const (
	// UnaccountedUnmeasured marks individuals tagged in the field but never
	// measured in any survey campaign.
	UnaccountedUnmeasured UnaccountedStatus = "UNMEASURED"
	// UnaccountedNoAllometry marks individuals with size measurements but no
	// mass estimate under any estimator.
	UnaccountedNoAllometry UnaccountedStatus = "NO_ALLOMETRY"
)

// UnaccountedIndividual is one row of the unaccounted-individuals report.
type UnaccountedIndividual struct {
	SiteID         string            `json:"siteID"`
	PlotID         string            `json:"plotID"`
	IndividualID   string            `json:"individualID"`
	ScientificName string            `json:"scientificName"`
	TaxonID        string            `json:"taxonID"`
	Status         UnaccountedStatus `json:"status"`
	Reason         string            `json:"reason"`
}

// IndividualRow is one row of the long-form individual table: one tree-class
// individual in one year, with stems collapsed to a single record and growth
// columns per estimator.
type IndividualRow struct {
	SiteID       string `json:"siteID"`
	PlotID       string `json:"plotID"`
	IndividualID string `json:"individualID"`
	Year         int    `json:"year"`

	Mass         MassSet  `json:"mass"`
	StemDiameter Quantity `json:"stemDiameter"`
	Height       Quantity `json:"height"`

	Status        string     `json:"plantStatus"`
	Provenance    Provenance `json:"provenance"`
	CorrectedDead bool       `json:"corrected_is_dead"`

	ScientificName string   `json:"scientificName"`
	TaxonID        string   `json:"taxonID"`
	Genus          string   `json:"genus"`
	Family         string   `json:"family"`
	TaxonRank      string   `json:"taxonRank"`
	PointID        string   `json:"pointID"`
	StemDistance   Quantity `json:"stemDistance"`
	StemAzimuth    Quantity `json:"stemAzimuth"`

	// Growth is the year-over-year mass change rate (kg/yr) from the
	// individual's previous year on record; CumulativeGrowth is the
	// least-squares slope across all of its years.
	Growth           MassSet `json:"growth"`
	CumulativeGrowth MassSet `json:"growth_cumu"`
}

// SeriesRow is one plot's densely interpolated time series for a single
// estimator. Values covers every integer year of the plot's survey span;
// Change holds the year-over-year difference within the span.
type SeriesRow struct {
	SiteID     string           `json:"siteID"`
	PlotID     string           `json:"plotID"`
	PlotAreaM2 Quantity         `json:"plotArea_m2"`
	FirstYear  int              `json:"first_year"`
	LastYear   int              `json:"last_year"`
	Values     map[int]Quantity `json:"agb"`
	Change     map[int]Quantity `json:"change"`
}

// SeriesTable is the interpolated series for every plot of a site under one
// estimator. MinYear and MaxYear span the union of all plots' survey years so
// tabular encodings share one column set.
type SeriesTable struct {
	Estimator Estimator   `json:"estimator"`
	MinYear   int         `json:"min_year"`
	MaxYear   int         `json:"max_year"`
	Rows      []SeriesRow `json:"rows"`
}
