// Package domain defines the core value types of the vegetation census
// pipeline: raw survey records, the reconciled individual-year grid, and the
// aggregated output tables.
package domain

// Estimator names one of the independent mass-estimation methods applied to
// each stem measurement.
type Estimator string

// The three supported allometric estimators.
const (
	EstimatorJenkins    Estimator = "AGBJenkins"
	EstimatorChojnacky  Estimator = "AGBChojnacky"
	EstimatorAnnighofer Estimator = "AGBAnnighofer"
)

// Estimators lists the estimators in canonical output order.
var Estimators = [...]Estimator{EstimatorJenkins, EstimatorChojnacky, EstimatorAnnighofer}

// NumEstimators is the number of independent estimators.
const NumEstimators = len(Estimators)

func estimatorIndex(e Estimator) int {
	for i, known := range Estimators {
		if known == e {
			return i
		}
	}
	return -1
}

// MassSet carries one Quantity per estimator.
type MassSet [NumEstimators]Quantity

// Get returns the quantity for the named estimator; missing for unknown names.
func (m MassSet) Get(e Estimator) Quantity {
	i := estimatorIndex(e)
	if i < 0 {
		return Quantity{}
	}
	return m[i]
}

// Set assigns the quantity for the named estimator.
func (m *MassSet) Set(e Estimator, q Quantity) {
	if i := estimatorIndex(e); i >= 0 {
		m[i] = q
	}
}

// AnyValid reports whether at least one estimator carries a value.
func (m MassSet) AnyValid() bool {
	for _, q := range m {
		if q.Valid {
			return true
		}
	}
	return false
}

// Zeroed returns a MassSet with every estimator set to zero.
func (m MassSet) Zeroed() MassSet {
	var out MassSet
	for i := range out {
		out[i] = Q(0)
	}
	return out
}

// Observation is one raw survey row: one stem of one individual at one survey
// event. Observations are immutable once loaded.
type Observation struct {
	IndividualID string
	EventID      string
	PlotID       string
	Date         string // calendar date, YYYY-MM-DD
	Status       string // raw plant status label, empty when unrecorded
	GrowthForm   string
	StemDiameter Quantity // cm
	Height       Quantity // m
}

// TagRecord is the tagging/location metadata row for one individual. It is
// used for unaccounted-individual reporting and as the source of
// time-invariant attributes on the long-form output.
type TagRecord struct {
	IndividualID   string
	PlotID         string
	Date           string
	ScientificName string
	TaxonID        string
	Genus          string
	Family         string
	TaxonRank      string
	PointID        string
	StemDistance   Quantity
	StemAzimuth    Quantity
}

// SamplingEvent is the authoritative per-plot-per-year sampling record. The
// set of sampling events, not the observation table, defines which plot-years
// exist: a surveyed plot with zero organisms is still a valid plot-year.
type SamplingEvent struct {
	PlotID           string
	Year             int
	TreeAreaM2       Quantity // sampled area for the large-stem class
	SmallWoodyAreaM2 Quantity // sampled area for the small-stem class
	TreesPresent     string
	ShrubsPresent    string
}

// MassRecord is one long-form external mass estimate: one individual, one
// calendar date, one estimator.
type MassRecord struct {
	IndividualID string
	Date         string
	Estimator    Estimator
	MassKg       Quantity
	SiteID       string
	PlotID       string
}

// PlotArea is the polygon-derived total area of a plot.
type PlotArea struct {
	PlotID   string
	SiteID   string
	PlotType string
	SizeM2   Quantity
}
