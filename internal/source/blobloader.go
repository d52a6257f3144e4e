package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"go.uber.org/zap"

	"vegcensus/internal/blob"
	"vegcensus/pkg/domain"
)

// BlobLoader reads site input snapshots from an artifact store instead of the
// local filesystem, with the same per-site layout and degradation rules as
// Loader: <prefix>/<site>/<table>.csv for the survey tables, mass part files
// under a shared prefix, and an optional plot polygon document.
type BlobLoader struct {
	Store blob.Store
	// Prefix is the key segment ahead of the site code, e.g. "snapshots".
	Prefix string
	// MassPrefix holds the mass-estimate part objects.
	MassPrefix string
	// PlotPolygonKey is the polygon document key. Empty skips plot areas.
	PlotPolygonKey string
	Logger         *zap.Logger
}

func (l BlobLoader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

func (l BlobLoader) siteKey(siteID, name string) string {
	if l.Prefix == "" {
		return path.Join(siteID, name)
	}
	return path.Join(l.Prefix, siteID, name)
}

// Load reads one site's complete input snapshot from the store. Semantics
// match Loader.Load: a missing observation object is fatal for the site, a
// missing tagging table or absent mass data degrades with a warning.
func (l BlobLoader) Load(siteID string) (Inputs, error) {
	ctx := context.Background()
	in := Inputs{SiteID: siteID}

	obs, err := readBlobCSV(ctx, l.Store, l.siteKey(siteID, observationFile), ReadObservations)
	if errors.Is(err, blob.ErrNotFound) {
		return in, fmt.Errorf("%w: %s", ErrMissingObservations, siteID)
	}
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Observations = obs

	sampling, err := readBlobCSV(ctx, l.Store, l.siteKey(siteID, samplingFile), ReadSamplingEvents)
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Sampling = sampling

	tags, err := readBlobCSV(ctx, l.Store, l.siteKey(siteID, taggingFile), ReadTags)
	if errors.Is(err, blob.ErrNotFound) {
		l.logger().Warn("no tagging table for site, unaccounted report will be partial",
			zap.String("site", siteID))
	} else if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}
	in.Tags = tags

	in.Masses, err = l.loadMasses(ctx, siteID)
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}

	in.PlotAreas, err = l.loadPlotAreas(ctx)
	if err != nil {
		return in, fmt.Errorf("site %s: %w", siteID, err)
	}

	l.logger().Info("loaded site snapshot from blob store",
		zap.String("site", siteID),
		zap.Int("observations", len(in.Observations)),
		zap.Int("sampling_events", len(in.Sampling)),
		zap.Int("tagged_individuals", len(in.Tags)),
		zap.Int("mass_keys", len(in.Masses)))
	return in, nil
}

func (l BlobLoader) loadMasses(ctx context.Context, siteID string) (map[MassKey]domain.MassSet, error) {
	if l.MassPrefix == "" {
		return map[MassKey]domain.MassSet{}, nil
	}
	infos, err := l.Store.List(ctx, l.MassPrefix)
	if err != nil {
		return nil, fmt.Errorf("list mass objects: %w", err)
	}
	var all []domain.MassRecord
	matched := 0
	for _, info := range infos {
		ok, err := path.Match(massFileGlob, path.Base(info.Key))
		if err != nil || !ok {
			continue
		}
		matched++
		records, err := readBlobCSV(ctx, l.Store, info.Key, ReadMassRecords)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	if matched == 0 {
		l.logger().Warn("no mass-estimate objects found, site may be non-forested",
			zap.String("site", siteID), zap.String("prefix", l.MassPrefix))
		return map[MassKey]domain.MassSet{}, nil
	}
	filtered := FilterMassesBySite(all, siteID)
	if len(filtered) == 0 {
		l.logger().Warn("no mass estimates for site, site may be non-forested",
			zap.String("site", siteID))
	}
	return PivotMasses(filtered), nil
}

func (l BlobLoader) loadPlotAreas(ctx context.Context) (map[string]domain.PlotArea, error) {
	if l.PlotPolygonKey == "" {
		return map[string]domain.PlotArea{}, nil
	}
	_, rc, err := l.Store.Get(ctx, l.PlotPolygonKey)
	if err != nil {
		return nil, fmt.Errorf("plot polygons: %w", err)
	}
	defer rc.Close()
	return ReadPlotAreas(rc)
}

// readBlobCSV fetches one table object and parses it. blob.ErrNotFound is
// preserved for callers that treat absence specially.
func readBlobCSV[T any](ctx context.Context, store blob.Store, key string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	rows, err := parse(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return rows, nil
}
