package source

import (
	"encoding/json"
	"fmt"
	"io"

	"vegcensus/pkg/domain"
)

// ReadPlotAreas parses the plot polygon document and returns the total area
// per plot. The document is GeoJSON-shaped; only feature properties are read.
func ReadPlotAreas(r io.Reader) (map[string]domain.PlotArea, error) {
	var doc struct {
		Features []struct {
			Properties struct {
				PlotID   string          `json:"plotID"`
				SiteID   string          `json:"siteID"`
				PlotType string          `json:"plotType"`
				PlotSize domain.Quantity `json:"plotSize"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("plot polygon document: %w", err)
	}
	out := make(map[string]domain.PlotArea, len(doc.Features))
	for _, f := range doc.Features {
		p := f.Properties
		if p.PlotID == "" {
			continue
		}
		if _, ok := out[p.PlotID]; ok {
			continue
		}
		out[p.PlotID] = domain.PlotArea{
			PlotID:   p.PlotID,
			SiteID:   p.SiteID,
			PlotType: p.PlotType,
			SizeM2:   p.PlotSize,
		}
	}
	return out, nil
}
