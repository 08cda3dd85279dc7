// Package integration provides live tests against LAADS DAAC.
// Run with: BLACKMARBLE_TOKEN=... go test -v ./internal/integration -tags=integration
//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/blackmarble/internal/config"
	"github.com/robert-malhotra/blackmarble/internal/fetch"
	"github.com/robert-malhotra/blackmarble/internal/laads"
	"github.com/robert-malhotra/blackmarble/internal/product"
	"github.com/robert-malhotra/blackmarble/internal/region"
	"github.com/robert-malhotra/blackmarble/internal/store"
	"github.com/robert-malhotra/blackmarble/internal/temporal"
	"github.com/robert-malhotra/blackmarble/internal/tiles"
	"github.com/robert-malhotra/blackmarble/pkg/server"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("BLACKMARBLE_TOKEN") == "" {
		t.Skip("BLACKMARBLE_TOKEN is not set")
	}
	t.Setenv("STAC_BASE_URL", "http://test.local")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// TestFetchAndServe downloads one annual tile over Washington, DC and serves
// it back through the STAC API.
func TestFetchAndServe(t *testing.T) {
	cfg := loadConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	token, err := cfg.ResolveToken("")
	if err != nil {
		t.Fatal(err)
	}

	r, err := region.FromBBox(-77.2, 38.8, -76.9, 39.0)
	if err != nil {
		t.Fatal(err)
	}
	ts, err := tiles.Resolve(r)
	if err != nil {
		t.Fatal(err)
	}
	periods, err := temporal.ExpandStrings(product.VNP46A4, []string{"2021"})
	if err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(ctx, t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}

	client := laads.NewClient(cfg.Archive.BaseURL, cfg.Archive.Timeout).WithLogger(logger).WithToken(token)
	orch := fetch.New(laads.NewArchive(client), st, cfg.FetchOptions()).WithLogger(logger)

	coll, err := orch.Fetch(ctx, fetch.Units(product.VNP46A4, ts, periods))
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(coll.Usable()) != 1 {
		t.Fatalf("expected one usable timestamp, gaps: %+v", coll.Gaps())
	}
	t.Logf("fetched %d tiles in run %s", len(coll.Outcomes()), coll.RunID)

	srv := server.FromConfig(cfg, st, prometheus.NewRegistry(), logger)
	defer srv.Close()
	ts2 := httptest.NewServer(srv.Router())
	defer ts2.Close()

	resp, err := http.Get(ts2.URL + "/collections/VNP46A4/items")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var fc struct {
		NumberMatched int `json:"numberMatched"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatalf("decode items: %v\n%s", err, body)
	}
	if fc.NumberMatched != len(ts) {
		t.Errorf("expected %d items, got %d", len(ts), fc.NumberMatched)
	}
}
