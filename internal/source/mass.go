package source

import "vegcensus/pkg/domain"

// MassKey matches a mass estimate to an observation: same individual, same
// calendar date.
type MassKey struct {
	IndividualID string
	Date         string
}

// PivotMasses turns the long-form estimate records into one wide MassSet per
// individual and date. Duplicate (individual, date, estimator) records keep
// the first value seen; records naming an unknown estimator are dropped.
func PivotMasses(records []domain.MassRecord) map[MassKey]domain.MassSet {
	out := make(map[MassKey]domain.MassSet)
	for _, rec := range records {
		key := MassKey{IndividualID: rec.IndividualID, Date: rec.Date}
		set := out[key]
		if set.Get(rec.Estimator).Valid {
			continue
		}
		set.Set(rec.Estimator, rec.MassKg)
		out[key] = set
	}
	return out
}

// FilterMassesBySite keeps only the records belonging to one site. Records
// without a site attribution are dropped.
func FilterMassesBySite(records []domain.MassRecord, siteID string) []domain.MassRecord {
	var out []domain.MassRecord
	for _, rec := range records {
		if rec.SiteID == siteID {
			out = append(out, rec)
		}
	}
	return out
}
