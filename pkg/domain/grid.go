package domain

// Provenance tags how an individual-year cell came to exist and what the
// reconciliation decided about it.
type Provenance string

// Cell provenance markers. ORIGINAL and FILLED describe which cells hold real
// measurements; the remaining markers record corrections applied on top.
const (
	// ProvenanceOriginal marks a cell backed by a real survey record.
	ProvenanceOriginal Provenance = "ORIGINAL"
	// ProvenanceFilled marks a cell created by grid expansion.
	ProvenanceFilled Provenance = "FILLED"
	// ProvenanceOutlier marks a real cell rejected by the spike filter.
	ProvenanceOutlier Provenance = "OUTLIER"
	// ProvenanceRemoved marks a cell zeroed because the individual was removed.
	ProvenanceRemoved Provenance = "REMOVED"
	// ProvenanceNotQualified marks a cell zeroed because the individual no
	// longer qualifies for measurement.
	ProvenanceNotQualified Provenance = "NOT_QUALIFIED"
)

// Category is the measurement class an individual-year record falls into.
type Category string

// Measurement classes.
const (
	CategoryTree       Category = "tree"
	CategorySmallWoody Category = "small_woody"
	CategoryOther      Category = "other"
)

// DiameterThresholdCm separates the large-stem (tree) class from the
// small-stem class.
const DiameterThresholdCm = 10.0

// Growth forms that qualify for the tree class.
var TreeGrowthForms = map[string]struct{}{
	"single bole tree": {},
	"multi-bole tree":  {},
	"small tree":       {},
}

// Growth forms that qualify for the small-woody class.
var SmallWoodyGrowthForms = map[string]struct{}{
	"small tree":   {},
	"sapling":      {},
	"single shrub": {},
	"small shrub":  {},
}

// KgToMg converts kilograms to megagrams (tonnes).
const KgToMg = 1.0 / 1000.0

// M2PerHectare converts square meters to hectares.
const M2PerHectare = 10000.0

// IndividualYear is one cell of the dense individual-by-year grid for a plot.
// Observed (individual, year) pairs keep one cell per measured stem; pairs
// created by grid expansion hold a single FILLED cell. Raw observed fields
// are set at construction; the pipeline mutates only the derived fields
// (Provenance, Mass, the corrected status flags).
type IndividualYear struct {
	IndividualID string
	PlotID       string
	Year         int
	Provenance   Provenance

	Status       string // raw status label, empty for filled cells
	GrowthForm   string
	StemDiameter Quantity
	Height       Quantity

	Mass     MassSet
	Category Category

	CorrectedDead         bool
	CorrectedRemoved      bool
	CorrectedNotQualified bool
}

// YearlyStatus is the per-year status rollup for one individual, before and
// after reconciliation. Observed is true when at least one stem carried a
// status label that year; reconciliation treats unobserved years as carrying
// no evidence.
type YearlyStatus struct {
	Year         int
	Dead         bool
	Removed      bool
	NotQualified bool
	Observed     bool

	CorrectedDead         bool
	CorrectedRemoved      bool
	CorrectedNotQualified bool
}
