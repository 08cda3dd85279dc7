package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/laads"
	"github.com/robert-malhotra/blackmarble/internal/raster"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	err := cmd.ExecuteContext(context.Background())
	t.Logf("logs:\n%s", logs.String())
	return out.String(), err
}

func TestTilesCommand(t *testing.T) {
	out, err := execute(t, "tiles", "--region", "-75,35,-65,39")
	if err != nil {
		t.Fatalf("tiles: %v", err)
	}
	want := "h10v05\t-80,30,-70,40\nh11v05\t-70,30,-60,40\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	out, err = execute(t, "tiles", "--region", "POLYGON ((1 1, 2 1, 2 2, 1 2, 1 1))")
	if err != nil {
		t.Fatalf("tiles with WKT: %v", err)
	}
	if out != "h18v08\t0,0,10,10\n" {
		t.Errorf("unexpected WKT output %q", out)
	}
}

func TestTilesCommandRegionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.geojson")
	doc := `{"type":"Polygon","coordinates":[[[1,1],[2,1],[2,2],[1,2],[1,1]]]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "tiles", "--region", path)
	if err != nil {
		t.Fatalf("tiles: %v", err)
	}
	if !strings.HasPrefix(out, "h18v08\t") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestPeriodsCommand(t *testing.T) {
	out, err := execute(t, "periods", "--product", "VNP46A3", "2022-01..2022-03", "2022-02")
	if err != nil {
		t.Fatalf("periods: %v", err)
	}
	want := "2022_01\t2022-01-01\n2022_02\t2022-02-01\n2022_03\t2022-03-01\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}

	if _, err := execute(t, "periods", "--product", "VNP46A3", "2022"); err == nil {
		t.Error("expected a bare year to be rejected for a monthly product")
	}
	if _, err := execute(t, "periods", "--product", "MOD09", "2022-01-01"); err == nil {
		t.Error("expected unknown product to be rejected")
	}
}

// fakeArchive lists h10v05 for every date and serves its file. h11v05 is
// never published.
type fakeArchive struct {
	downloads atomic.Int32
	deny      bool
}

func (f *fakeArchive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/files" {
		date := strings.SplitN(r.URL.Query().Get("dateRanges"), "..", 2)[0]
		name := "VNP46A2.A" + strings.ReplaceAll(date, "-", "") + ".h10v05.001.h5"
		json.NewEncoder(w).Encode(laads.Listing{
			"1": {Name: name, FileURL: "/archive/" + name, Size: 7},
		})
		return
	}
	if f.deny || r.Header.Get("Authorization") != "Bearer secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.downloads.Add(1)
	io.WriteString(w, "payload")
}

func setupFetch(t *testing.T, archive *fakeArchive) (storeDir, manifest string) {
	t.Helper()
	srv := httptest.NewServer(archive)
	t.Cleanup(srv.Close)

	t.Setenv("ARCHIVE_BASE_URL", srv.URL)
	t.Setenv("BLACKMARBLE_TOKEN", "")
	t.Setenv("RETRY_BASE_DELAY", "1ms")
	t.Setenv("RETRY_MAX_DELAY", "2ms")
	t.Setenv("RETRY_MAX_ATTEMPTS", "2")

	dir := t.TempDir()
	return filepath.Join(dir, "store"), filepath.Join(dir, "gaps.yaml")
}

func TestFetchCommand(t *testing.T) {
	archive := &fakeArchive{}
	storeDir, manifestPath := setupFetch(t, archive)

	args := []string{
		"fetch",
		"--product", "VNP46A2",
		"--region", "-75,35,-65,39",
		"--token", "secret",
		"--store", storeDir,
		"--manifest", manifestPath,
		"2022-01-01",
	}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out, "2022_01_01\tVNP46A2\tunusable\t1/2") {
		t.Errorf("unexpected batch report %q", out)
	}
	if _, err := os.Stat(filepath.Join(storeDir, "VNP46A2_h10v05_t2022_01_01.h5")); err != nil {
		t.Errorf("artifact not stored: %v", err)
	}

	f, err := os.Open(manifestPath)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	m, err := fetch.ReadManifest(f)
	f.Close()
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if len(m.Gaps) != 1 || m.Gaps[0].Tile != "h11v05" || m.Gaps[0].Status != "not_found" {
		t.Errorf("unexpected gaps %+v", m.Gaps)
	}

	if _, err := execute(t, args...); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if n := archive.downloads.Load(); n != 1 {
		t.Errorf("expected the stored tile to be skipped, got %d downloads", n)
	}
}

func TestFetchCommandMetricsFile(t *testing.T) {
	storeDir, _ := setupFetch(t, &fakeArchive{})
	textfile := filepath.Join(t.TempDir(), "fetch.prom")

	_, err := execute(t, "fetch",
		"--product", "VNP46A2",
		"--region", "-75,35,-65,39",
		"--token", "secret",
		"--store", storeDir,
		"--metrics-file", textfile,
		"2022-01-01",
	)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	for _, want := range []string{
		`blackmarble_fetch_outcomes_total{product="VNP46A2",status="downloaded"} 1`,
		`blackmarble_fetch_outcomes_total{product="VNP46A2",status="not_found"} 1`,
		`blackmarble_downloaded_bytes_total{product="VNP46A2"} 7`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics textfile missing %q", want)
		}
	}
}

func TestFetchCommandStrict(t *testing.T) {
	storeDir, _ := setupFetch(t, &fakeArchive{})

	_, err := execute(t, "fetch",
		"--product", "VNP46A2",
		"--region", "-75,35,-65,39",
		"--token", "secret",
		"--store", storeDir,
		"--strict",
		"2022-01-01",
	)
	if !errors.Is(err, fetch.ErrIncomplete) {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}
}

func TestFetchCommandAuthentication(t *testing.T) {
	storeDir, manifestPath := setupFetch(t, &fakeArchive{deny: true})

	_, err := execute(t, "fetch",
		"--product", "VNP46A2",
		"--region", "-79,31,-71,39",
		"--token", "wrong",
		"--store", storeDir,
		"--manifest", manifestPath,
		"2022-01-01..2022-01-03",
	)
	if !errors.Is(err, laads.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if _, statErr := os.Stat(manifestPath); statErr != nil {
		t.Errorf("manifest should be written after an aborted run: %v", statErr)
	}
}

func TestFetchCommandMissingToken(t *testing.T) {
	storeDir, _ := setupFetch(t, &fakeArchive{})

	_, err := execute(t, "fetch", "--product", "VNP46A2", "--region", "-75,35,-65,39", "--store", storeDir, "2022-01-01")
	if !errors.Is(err, laads.ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

// TestConverterHelperProcess plays the tile converter for fetch --stats. It
// fills a 2x2 band with the size of the file it was given.
func TestConverterHelperProcess(t *testing.T) {
	if os.Getenv("BLACKMARBLE_CONVERTER_HELPER") != "1" {
		return
	}
	n, _ := io.Copy(io.Discard, os.Stdin)
	v := float64(n)
	json.NewEncoder(os.Stdout).Encode(raster.Band{Rows: 2, Cols: 2, Values: []float64{v, v, v, v}})
	os.Exit(0)
}

func TestFetchCommandStats(t *testing.T) {
	storeDir, _ := setupFetch(t, &fakeArchive{})
	t.Setenv("BLACKMARBLE_CONVERTER_HELPER", "1")

	out, err := execute(t, "fetch",
		"--product", "VNP46A2",
		"--region", "-79,31,-71,39",
		"--token", "secret",
		"--store", storeDir,
		"--stats", "mean,count",
		"--converter", os.Args[0]+" -test.run=^TestConverterHelperProcess$ --",
		"2022-01-01",
	)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := "2022_01_01\tVNP46A2\tzone=0\tntl_mean=7\tntl_count=4\n"
	if !strings.Contains(out, want) {
		t.Errorf("output %q does not contain %q", out, want)
	}
}

func TestFetchCommandStatsNeedsConverter(t *testing.T) {
	storeDir, _ := setupFetch(t, &fakeArchive{})

	_, err := execute(t, "fetch",
		"--product", "VNP46A2",
		"--region", "-79,31,-71,39",
		"--token", "secret",
		"--store", storeDir,
		"--stats", "mean",
		"2022-01-01",
	)
	if err == nil || !strings.Contains(err.Error(), "--converter") {
		t.Errorf("expected a missing converter error, got %v", err)
	}
}

func TestLoadRegion(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "bbox", value: "-10,-10,10,10"},
		{name: "wkt", value: "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"},
		{name: "empty", value: "", wantErr: true},
		{name: "garbage", value: "not a region", wantErr: true},
		{name: "bbox out of range", value: "-200,0,10,10", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadRegion(tt.value, "")
			if (err != nil) != tt.wantErr {
				t.Errorf("loadRegion(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at warn level")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil || entry["msg"] != "shown" {
		t.Errorf("expected one JSON entry, got %q (%v)", buf.String(), err)
	}
}
