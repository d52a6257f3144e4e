package source

import (
	"encoding/csv"
	"fmt"
	"io"

	"vegcensus/pkg/domain"
)

// row is one CSV record with header-indexed field access. Absent columns and
// short records read as empty strings so optional fields degrade to missing.
type row struct {
	header map[string]int
	fields []string
}

func (r row) get(column string) string {
	i, ok := r.header[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

func (r row) quantity(column string) (domain.Quantity, error) {
	q, err := domain.ParseQuantity(r.get(column))
	if err != nil {
		return domain.Missing, fmt.Errorf("column %s: %w", column, err)
	}
	return q, nil
}

// forEachRow streams a CSV table, calling fn once per data record. The first
// record is the header. Required columns must all be present.
func forEachRow(r io.Reader, required []string, fn func(row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	head, err := reader.Read()
	if err == io.EOF {
		return fmt.Errorf("empty table")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		header[name] = i
	}
	for _, name := range required {
		if _, ok := header[name]; !ok {
			return fmt.Errorf("missing required column %q", name)
		}
	}
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(row{header: header, fields: fields}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// ReadObservations parses the survey observation table. One record is one
// stem of one individual at one survey event.
func ReadObservations(r io.Reader) ([]domain.Observation, error) {
	var out []domain.Observation
	err := forEachRow(r, []string{"individualID", "eventID", "plotID"}, func(rec row) error {
		diameter, err := rec.quantity("stemDiameter")
		if err != nil {
			return err
		}
		height, err := rec.quantity("height")
		if err != nil {
			return err
		}
		out = append(out, domain.Observation{
			IndividualID: rec.get("individualID"),
			EventID:      rec.get("eventID"),
			PlotID:       rec.get("plotID"),
			Date:         rec.get("date"),
			Status:       rec.get("plantStatus"),
			GrowthForm:   rec.get("growthForm"),
			StemDiameter: diameter,
			Height:       height,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("observation table: %w", err)
	}
	return out, nil
}

// ReadTags parses the tagging metadata table, one record per tagged
// individual.
func ReadTags(r io.Reader) ([]domain.TagRecord, error) {
	var out []domain.TagRecord
	err := forEachRow(r, []string{"individualID"}, func(rec row) error {
		distance, err := rec.quantity("stemDistance")
		if err != nil {
			return err
		}
		azimuth, err := rec.quantity("stemAzimuth")
		if err != nil {
			return err
		}
		out = append(out, domain.TagRecord{
			IndividualID:   rec.get("individualID"),
			PlotID:         rec.get("plotID"),
			Date:           rec.get("date"),
			ScientificName: rec.get("scientificName"),
			TaxonID:        rec.get("taxonID"),
			Genus:          rec.get("genus"),
			Family:         rec.get("family"),
			TaxonRank:      rec.get("taxonRank"),
			PointID:        rec.get("pointID"),
			StemDistance:   distance,
			StemAzimuth:    azimuth,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tagging table: %w", err)
	}
	return out, nil
}

// ReadSamplingEvents parses the per-plot-per-year sampling table, the
// authoritative record of which plot-years exist. The survey year is taken
// from the event identifier.
func ReadSamplingEvents(r io.Reader) ([]domain.SamplingEvent, error) {
	var out []domain.SamplingEvent
	err := forEachRow(r, []string{"plotID", "eventID"}, func(rec row) error {
		year, err := YearFromEventID(rec.get("eventID"))
		if err != nil {
			return err
		}
		treeArea, err := rec.quantity("totalSampledAreaTrees")
		if err != nil {
			return err
		}
		smallArea, err := rec.quantity("totalSampledAreaShrubSapling")
		if err != nil {
			return err
		}
		out = append(out, domain.SamplingEvent{
			PlotID:           rec.get("plotID"),
			Year:             year,
			TreeAreaM2:       treeArea,
			SmallWoodyAreaM2: smallArea,
			TreesPresent:     rec.get("treesPresent"),
			ShrubsPresent:    rec.get("shrubsPresent"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sampling table: %w", err)
	}
	return out, nil
}

// ReadMassRecords parses the external long-form mass-estimate table: one
// record per individual, date, and estimator.
func ReadMassRecords(r io.Reader) ([]domain.MassRecord, error) {
	var out []domain.MassRecord
	err := forEachRow(r, []string{"individualID", "date", "allometry", "AGB"}, func(rec row) error {
		mass, err := rec.quantity("AGB")
		if err != nil {
			return err
		}
		out = append(out, domain.MassRecord{
			IndividualID: rec.get("individualID"),
			Date:         rec.get("date"),
			Estimator:    domain.Estimator(rec.get("allometry")),
			MassKg:       mass,
			SiteID:       rec.get("siteID"),
			PlotID:       rec.get("plotID"),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mass table: %w", err)
	}
	return out, nil
}
