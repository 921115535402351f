package scorer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
)

func newTestEngine(t *testing.T) (*Engine, *cache.Store) {
	t.Helper()
	store := cache.New(0, 0)
	statsStore, err := stats.New(filepath.Join(t.TempDir(), "stats.json"), "", 0.92, []string{"francecentral"})
	if err != nil {
		t.Fatalf("stats.New() error = %v", err)
	}
	t.Cleanup(func() { statsStore.Close() })

	shifter := timeshift.New(store, 5.0)
	cfg := &config.ScoringConfig{
		WeightPrice:        0.50,
		WeightCarbon:       0.20,
		WeightAvailability: 0.15,
		WeightCooling:      0.10,
		WeightRenewable:    0.05,
		EURPerUSD:          0.92,
		PUE:                1.2,
	}
	return New(store, statsStore, shifter, cfg), store
}

func seedRegion(store *cache.Store, regionID string, obs ...domain.SpotObservation) {
	store.SetPrices(regionID, obs)
	store.SetWeather(regionID, domain.WeatherObservation{Region: regionID, CurrentTempC: 15, CurrentWindKmh: 10})
	store.SetCarbon(regionID, domain.CarbonObservation{Region: regionID, GCO2KWh: 90})
}

func TestSimulatePicksCheaperCandidate(t *testing.T) {
	engine, store := newTestEngine(t)
	seedRegion(store, "francecentral",
		domain.SpotObservation{SKU: "NC6s_v3", GPUName: "Tesla V100 (16GB)", RAMGB: 112, SpotPriceUSDHr: 3.0, OnDemandPriceUSDHr: 6.0, Availability: domain.High},
		domain.SpotObservation{SKU: "NC4as_T4_v3", GPUName: "Tesla T4 (16GB)", RAMGB: 28, SpotPriceUSDHr: 0.3, OnDemandPriceUSDHr: 0.6, Availability: domain.High},
	)

	resp, err := engine.Simulate(domain.SimulateRequest{
		EstimatedGPUHours:     5,
		Deadline:              time.Now().UTC().Add(48 * time.Hour),
		MinGPUMemoryGB:        16,
		CheckpointIntervalMin: 15,
		PreferredRegion:       "francecentral",
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if resp.Decision.GPUSKU != "NC4as_T4_v3" {
		t.Errorf("Decision.GPUSKU = %q, want the cheaper NC4as_T4_v3", resp.Decision.GPUSKU)
	}
	if resp.JobID == "" {
		t.Error("expected a non-empty JobID")
	}
	if resp.Savings.SavingsUSD <= 0 {
		t.Errorf("SavingsUSD = %v, want > 0", resp.Savings.SavingsUSD)
	}
}

func TestSimulateFiltersByMinMemory(t *testing.T) {
	engine, store := newTestEngine(t)
	seedRegion(store, "francecentral",
		domain.SpotObservation{SKU: "NC4as_T4_v3", GPUName: "Tesla T4 (16GB)", RAMGB: 28, SpotPriceUSDHr: 0.3, OnDemandPriceUSDHr: 0.6, Availability: domain.High},
	)

	_, err := engine.Simulate(domain.SimulateRequest{
		EstimatedGPUHours: 5,
		Deadline:          time.Now().UTC().Add(48 * time.Hour),
		MinGPUMemoryGB:    256,
		PreferredRegion:   "francecentral",
	})
	if err != domain.ErrNoFit {
		t.Errorf("error = %v, want ErrNoFit", err)
	}
}

func TestSimulateUnsupportedRegion(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Simulate(domain.SimulateRequest{
		EstimatedGPUHours: 1,
		Deadline:          time.Now().UTC().Add(48 * time.Hour),
		PreferredRegion:   "nowhere",
	})
	if err != domain.ErrUnsupportedRegion {
		t.Errorf("error = %v, want ErrUnsupportedRegion", err)
	}
}

func TestSimulateRecordsStats(t *testing.T) {
	engine, store := newTestEngine(t)
	seedRegion(store, "francecentral",
		domain.SpotObservation{SKU: "NC6s_v3", GPUName: "Tesla V100 (16GB)", RAMGB: 112, SpotPriceUSDHr: 3.0, OnDemandPriceUSDHr: 6.0, Availability: domain.High},
	)

	_, err := engine.Simulate(domain.SimulateRequest{
		EstimatedGPUHours: 2,
		Deadline:          time.Now().UTC().Add(48 * time.Hour),
		MinGPUMemoryGB:    16,
		PreferredRegion:   "francecentral",
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	snap := engine.statsStore.Snapshot()
	if snap.TotalJobsManaged != 1 {
		t.Errorf("TotalJobsManaged = %d, want 1", snap.TotalJobsManaged)
	}
}

func TestGPUFamilyFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Tesla V100 (16GB)", "v100"},
		{"A100 (80GB)", "a100"},
		{"H100 (80GB)", "h100"},
		{"Unknown GPU", "v100"},
	}
	for _, tt := range tests {
		if got := gpuFamilyFromName(tt.name); got != tt.want {
			t.Errorf("gpuFamilyFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
