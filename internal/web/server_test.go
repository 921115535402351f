package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/checkpoint"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/controller"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/scorer"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := cache.New(0, 0)
	store.SetPrices("francecentral", []domain.SpotObservation{
		{SKU: "NC6s_v3", GPUName: "Tesla V100", RAMGB: 112, SpotPriceUSDHr: 1.5, OnDemandPriceUSDHr: 3.0, Availability: domain.High},
	})

	statsStore, err := stats.New(filepath.Join(t.TempDir(), "stats.json"), "", 0.92, []string{"francecentral"})
	if err != nil {
		t.Fatalf("stats.New() error = %v", err)
	}
	t.Cleanup(func() { statsStore.Close() })

	shifter := timeshift.New(store, 5.0)
	scoringCfg := &config.ScoringConfig{
		WeightPrice: 0.50, WeightCarbon: 0.20, WeightAvailability: 0.15,
		WeightCooling: 0.10, WeightRenewable: 0.05, EURPerUSD: 0.92, PUE: 1.2,
	}
	ctrl := controller.New(controller.Deps{
		Store:      store,
		Scorer:     scorer.New(store, statsStore, shifter, scoringCfg),
		Shifter:    shifter,
		Checkpoint: checkpoint.New(store, statsStore),
		Stats:      statsStore,
	})

	return NewServer(0, ctrl, nil)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestGetRegionEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/regions/francecentral", nil)
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var region domain.RegionInfo
	if err := json.NewDecoder(rr.Body).Decode(&region); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if region.RegionID != "francecentral" {
		t.Errorf("RegionID = %q, want francecentral", region.RegionID)
	}
}

func TestGetRegionUnknownReturns404(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/regions/nowhere", nil)
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSimulateEndpoint(t *testing.T) {
	server := newTestServer(t)

	reqBody := domain.SimulateRequest{
		EstimatedGPUHours:     2,
		Deadline:              time.Now().UTC().Add(48 * time.Hour),
		MinGPUMemoryGB:        16,
		CheckpointIntervalMin: 15,
		PreferredRegion:       "francecentral",
	}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp domain.SimulateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.JobID == "" {
		t.Error("expected a non-empty JobID")
	}
}

func TestSimulateEndpointInvalidBodyReturns400(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestMetricsEndpointAbsentWhenRegistryNil(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	server.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (no registry wired)", rr.Code, http.StatusNotFound)
	}
}
