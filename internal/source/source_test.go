package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vegcensus/internal/blob"
	"vegcensus/pkg/domain"
)

func TestYearFromEventID(t *testing.T) {
	year, err := YearFromEventID("vst_SJER_2015")
	if err != nil || year != 2015 {
		t.Fatalf("got %d, %v", year, err)
	}
	if _, err := YearFromEventID("vst_SJER"); err == nil {
		t.Fatalf("non-numeric suffix must fail")
	}
	if _, err := YearFromEventID("x"); err == nil {
		t.Fatalf("short id must fail")
	}
}

func TestReadObservations(t *testing.T) {
	csv := strings.Join([]string{
		"uid,individualID,eventID,plotID,date,plantStatus,growthForm,stemDiameter,height",
		"1,NEON.A,vst_SJER_2015,SJER_001,2015-03-10,Live,single bole tree,12.4,8.1",
		"2,NEON.B,vst_SJER_2015,SJER_001,2015-03-10,Standing dead,sapling,,",
	}, "\n")
	obs, err := ReadObservations(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(obs))
	}
	first := obs[0]
	if first.IndividualID != "NEON.A" || first.PlotID != "SJER_001" || first.Status != "Live" {
		t.Fatalf("bad first row: %+v", first)
	}
	if !first.StemDiameter.Equal(domain.Q(12.4)) || !first.Height.Equal(domain.Q(8.1)) {
		t.Fatalf("bad measurements: %+v", first)
	}
	if obs[1].StemDiameter.Valid || obs[1].Height.Valid {
		t.Fatalf("empty numeric fields must read as missing")
	}
}

func TestReadObservationsRejectsMissingColumns(t *testing.T) {
	csv := "individualID,plotID\nNEON.A,SJER_001\n"
	if _, err := ReadObservations(strings.NewReader(csv)); err == nil {
		t.Fatalf("missing eventID column must fail")
	}
}

func TestReadSamplingEvents(t *testing.T) {
	csv := strings.Join([]string{
		"plotID,eventID,totalSampledAreaTrees,totalSampledAreaShrubSapling,treesPresent,shrubsPresent",
		"SJER_001,vst_SJER_2016,800,400,Y,N",
		"SJER_002,vst_SJER_2016,,400,N,Y",
	}, "\n")
	events, err := ReadSamplingEvents(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(events))
	}
	if events[0].Year != 2016 || !events[0].TreeAreaM2.Equal(domain.Q(800)) {
		t.Fatalf("bad first row: %+v", events[0])
	}
	if events[1].TreeAreaM2.Valid {
		t.Fatalf("absent tree area must be missing")
	}
}

func TestReadMassRecordsAndPivot(t *testing.T) {
	csv := strings.Join([]string{
		"individualID,date,allometry,AGB,siteID,plotID",
		"NEON.A,2015-03-10,AGBJenkins,120.5,SJER,SJER_001",
		"NEON.A,2015-03-10,AGBChojnacky,98.2,SJER,SJER_001",
		"NEON.A,2015-03-10,AGBJenkins,999,SJER,SJER_001",
		"NEON.B,2015-03-10,AGBJenkins,5,HARV,HARV_001",
	}, "\n")
	records, err := ReadMassRecords(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	records = FilterMassesBySite(records, "SJER")
	if len(records) != 3 {
		t.Fatalf("expected 3 SJER rows, got %d", len(records))
	}
	pivot := PivotMasses(records)
	set, ok := pivot[MassKey{IndividualID: "NEON.A", Date: "2015-03-10"}]
	if !ok {
		t.Fatalf("missing pivot key")
	}
	// First value wins on duplicate estimator records.
	if !set.Get(domain.EstimatorJenkins).Equal(domain.Q(120.5)) {
		t.Fatalf("jenkins = %v", set.Get(domain.EstimatorJenkins))
	}
	if !set.Get(domain.EstimatorChojnacky).Equal(domain.Q(98.2)) {
		t.Fatalf("chojnacky = %v", set.Get(domain.EstimatorChojnacky))
	}
	if set.Get(domain.EstimatorAnnighofer).Valid {
		t.Fatalf("annighofer must be missing")
	}
}

func TestReadPlotAreas(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
		{"properties":{"plotID":"SJER_001","siteID":"SJER","plotType":"tower","plotSize":1600}},
		{"properties":{"plotID":"SJER_001","siteID":"SJER","plotType":"tower","plotSize":9999}},
		{"properties":{"plotID":"","siteID":"SJER"}}
	]}`
	areas, err := ReadPlotAreas(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("expected 1 plot, got %d", len(areas))
	}
	if got := areas["SJER_001"]; !got.SizeM2.Equal(domain.Q(1600)) || got.SiteID != "SJER" {
		t.Fatalf("bad plot area: %+v", got)
	}
}

func TestLoaderMissingObservationsIsSentinel(t *testing.T) {
	loader := Loader{DataDir: t.TempDir()}
	_, err := loader.Load("SJER")
	if !errors.Is(err, ErrMissingObservations) {
		t.Fatalf("expected ErrMissingObservations, got %v", err)
	}
}

func TestLoaderLoadsSiteDirectory(t *testing.T) {
	dir := t.TempDir()
	siteDir := filepath.Join(dir, "SJER")
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(siteDir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("vst_apparentindividual.csv",
		"individualID,eventID,plotID,date,plantStatus,growthForm,stemDiameter,height\n"+
			"NEON.A,vst_SJER_2015,SJER_001,2015-03-10,Live,single bole tree,12.4,8.1\n")
	write("vst_perplotperyear.csv",
		"plotID,eventID,totalSampledAreaTrees,totalSampledAreaShrubSapling,treesPresent,shrubsPresent\n"+
			"SJER_001,vst_SJER_2015,800,400,Y,N\n")
	write("vst_mappingandtagging.csv",
		"individualID,plotID,scientificName,taxonID\nNEON.A,SJER_001,Quercus douglasii,QUDO\n")

	massDir := filepath.Join(dir, "agb")
	if err := os.MkdirAll(massDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	massBody := "individualID,date,allometry,AGB,siteID,plotID\n" +
		"NEON.A,2015-03-10,AGBJenkins,120.5,SJER,SJER_001\n"
	if err := os.WriteFile(filepath.Join(massDir, "NEONForestAGBv2_part001.csv"), []byte(massBody), 0o644); err != nil {
		t.Fatalf("write mass: %v", err)
	}

	loader := Loader{DataDir: dir, MassDir: massDir}
	in, err := loader.Load("SJER")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(in.Observations) != 1 || len(in.Sampling) != 1 || len(in.Tags) != 1 {
		t.Fatalf("bad counts: %d obs, %d sampling, %d tags",
			len(in.Observations), len(in.Sampling), len(in.Tags))
	}
	set := in.Masses[MassKey{IndividualID: "NEON.A", Date: "2015-03-10"}]
	if !set.Get(domain.EstimatorJenkins).Equal(domain.Q(120.5)) {
		t.Fatalf("mass pivot missing: %+v", set)
	}
}

func TestBlobLoaderMirrorsDiskSemantics(t *testing.T) {
	store := blob.NewMemory()
	ctx := context.Background()
	put := func(key, body string) {
		t.Helper()
		if _, err := store.Put(ctx, key, strings.NewReader(body), blob.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	put("snapshots/SJER/vst_apparentindividual.csv",
		"individualID,eventID,plotID,date,plantStatus,growthForm,stemDiameter,height\n"+
			"NEON.A,vst_SJER_2015,SJER_001,2015-03-10,Live,single bole tree,12.4,8.1\n")
	put("snapshots/SJER/vst_perplotperyear.csv",
		"plotID,eventID,totalSampledAreaTrees,totalSampledAreaShrubSapling,treesPresent,shrubsPresent\n"+
			"SJER_001,vst_SJER_2015,800,400,Y,N\n")
	put("snapshots/SJER/vst_mappingandtagging.csv",
		"individualID,plotID,scientificName,taxonID\nNEON.A,SJER_001,Quercus douglasii,QUDO\n")
	put("agb/NEONForestAGBv2_part001.csv",
		"individualID,date,allometry,AGB,siteID,plotID\n"+
			"NEON.A,2015-03-10,AGBJenkins,120.5,SJER,SJER_001\n")
	// Non-part object under the mass prefix is ignored.
	put("agb/README.txt", "not a table")

	loader := BlobLoader{Store: store, Prefix: "snapshots", MassPrefix: "agb"}
	in, err := loader.Load("SJER")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(in.Observations) != 1 || len(in.Sampling) != 1 || len(in.Tags) != 1 {
		t.Fatalf("bad counts: %d obs, %d sampling, %d tags",
			len(in.Observations), len(in.Sampling), len(in.Tags))
	}
	set := in.Masses[MassKey{IndividualID: "NEON.A", Date: "2015-03-10"}]
	if !set.Get(domain.EstimatorJenkins).Equal(domain.Q(120.5)) {
		t.Fatalf("mass pivot missing: %+v", set)
	}

	if _, err := loader.Load("HARV"); !errors.Is(err, ErrMissingObservations) {
		t.Fatalf("missing site error = %v, want ErrMissingObservations", err)
	}
}
