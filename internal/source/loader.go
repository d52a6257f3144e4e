package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"vegcensus/pkg/domain"
)

// Snapshot file names inside a site directory.
const (
	observationFile = "vst_apparentindividual.csv"
	taggingFile     = "vst_mappingandtagging.csv"
	samplingFile    = "vst_perplotperyear.csv"
)

// massFileGlob matches the parts of the external mass-estimate table. The
// table ships split into numbered part files which are concatenated on load.
const massFileGlob = "NEONForestAGBv2_part*.csv"

// Loader resolves the on-disk snapshot layout for a run: one directory per
// site for the survey tables, a shared directory of mass-estimate part files,
// and an optional plot polygon document.
type Loader struct {
	DataDir         string
	MassDir         string
	PlotPolygonPath string
	Logger          *zap.Logger
}

func (l Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Load reads one site's complete input snapshot. A missing observation table
// is fatal for the site (ErrMissingObservations); a missing tagging table or
// absent mass data degrades to empty inputs with a warning, since
// non-forested sites legitimately have no external estimates.
func (l Loader) Load(siteID string) (Inputs, error) {
	in := Inputs{SiteID: siteID}
	siteDir := filepath.Join(l.DataDir, siteID)

	obs, err := readCSV(filepath.Join(siteDir, observationFile), ReadObservations)
	if os.IsNotExist(err) {
		return in, fmt.Errorf("%w: %s", ErrMissingObservations, siteID)
	}
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Observations = obs

	sampling, err := readCSV(filepath.Join(siteDir, samplingFile), ReadSamplingEvents)
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Sampling = sampling

	tags, err := readCSV(filepath.Join(siteDir, taggingFile), ReadTags)
	if os.IsNotExist(err) {
		l.logger().Warn("no tagging table for site, unaccounted report will be partial",
			zap.String("site", siteID))
	} else if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Tags = tags

	masses, err := l.loadMasses(siteID)
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Masses = masses

	in.PlotAreas, err = l.loadPlotAreas()
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}

	l.logger().Info("loaded site snapshot",
		zap.String("site", siteID),
		zap.Int("observations", len(in.Observations)),
		zap.Int("sampling_events", len(in.Sampling)),
		zap.Int("tagged_individuals", len(in.Tags)),
		zap.Int("mass_keys", len(in.Masses)))
	return in, nil
}

// readCSV opens one table file and parses it. The os.IsNotExist state of the
// open error is preserved for callers that treat absence specially.
func readCSV[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func (l Loader) loadMasses(siteID string) (map[MassKey]domain.MassSet, error) {
	if l.MassDir == "" {
		return map[MassKey]domain.MassSet{}, nil
	}
	paths, err := filepath.Glob(filepath.Join(l.MassDir, massFileGlob))
	if err != nil {
		return nil, fmt.Errorf("mass table glob: %w", err)
	}
	if len(paths) == 0 {
		l.logger().Warn("no mass-estimate files found, site may be non-forested",
			zap.String("site", siteID), zap.String("dir", l.MassDir))
		return map[MassKey]domain.MassSet{}, nil
	}
	sort.Strings(paths)
	var all []domain.MassRecord
	for _, path := range paths {
		records, err := readCSV(path, ReadMassRecords)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	filtered := FilterMassesBySite(all, siteID)
	if len(filtered) == 0 {
		l.logger().Warn("no mass estimates for site, site may be non-forested",
			zap.String("site", siteID))
	}
	return PivotMasses(filtered), nil
}

func (l Loader) loadPlotAreas() (map[string]domain.PlotArea, error) {
	if l.PlotPolygonPath == "" {
		return map[string]domain.PlotArea{}, nil
	}
	f, err := os.Open(l.PlotPolygonPath)
	if err != nil {
		return nil, fmt.Errorf("plot polygons: %w", err)
	}
	defer f.Close()
	return ReadPlotAreas(f)
}
