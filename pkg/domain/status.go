package domain

// StatusClass is the interpreted meaning of a raw plant status label.
type StatusClass string

// Interpreted status classes. StatusRemoved and StatusNotQualified are
// dead-indicating specials with their own absorption rules.
const (
	StatusAlive        StatusClass = "alive"
	StatusDead         StatusClass = "dead"
	StatusRemoved      StatusClass = "removed"
	StatusNotQualified StatusClass = "not_qualified"
	StatusUnknown      StatusClass = "unknown"
)

// Labels with special reconciliation semantics.
const (
	LabelRemoved      = "Removed"
	LabelNotQualified = "No longer qualifies"
)

// Vocabulary is the immutable set of recognized status labels, loaded once at
// startup.
type Vocabulary struct {
	dead map[string]struct{}
	live map[string]struct{}
}

// NewVocabulary builds a vocabulary from explicit label sets.
func NewVocabulary(dead, live []string) Vocabulary {
	v := Vocabulary{
		dead: make(map[string]struct{}, len(dead)),
		live: make(map[string]struct{}, len(live)),
	}
	for _, s := range dead {
		v.dead[s] = struct{}{}
	}
	for _, s := range live {
		v.live[s] = struct{}{}
	}
	return v
}

// DefaultVocabulary returns the standard survey status vocabulary. An empty
// label is in neither set: it means the stem was not observed that year.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(
		[]string{
			"Dead, broken bole",
			"Downed",
			"Lost, burned",
			"Lost, fate unknown",
			"Lost, herbivory",
			"Lost, presumed dead",
			LabelRemoved,
			"Standing dead",
			LabelNotQualified,
		},
		[]string{
			"Live",
			"Live,  other damage",
			"Live, broken bole",
			"Live, disease damaged",
			"Live, insect damaged",
			"Live, physically damaged",
			"Lost, tag damaged",
		},
	)
}

// Classify maps a raw label to its status class. Empty labels classify as
// unknown, as do labels outside both sets.
func (v Vocabulary) Classify(label string) StatusClass {
	if label == "" {
		return StatusUnknown
	}
	switch label {
	case LabelRemoved:
		return StatusRemoved
	case LabelNotQualified:
		return StatusNotQualified
	}
	if _, ok := v.dead[label]; ok {
		return StatusDead
	}
	if _, ok := v.live[label]; ok {
		return StatusAlive
	}
	return StatusUnknown
}

// DeadIndicating reports whether the label counts as evidence of death.
// Removed and not-qualified labels are dead-indicating.
func (v Vocabulary) DeadIndicating(label string) bool {
	_, ok := v.dead[label]
	return ok
}

// AliveIndicating reports whether the label counts as evidence of life.
func (v Vocabulary) AliveIndicating(label string) bool {
	_, ok := v.live[label]
	return ok
}
