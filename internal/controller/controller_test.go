package controller

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/checkpoint"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/scorer"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
)

func newTestController(t *testing.T) (*Controller, *cache.Store) {
	t.Helper()
	store := cache.New(0, 0)
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
	scoreEngine := scorer.New(store, statsStore, shifter, scoringCfg)
	checkpointSim := checkpoint.New(store, statsStore)

	ctrl := New(Deps{
		Store:      store,
		Scorer:     scoreEngine,
		Shifter:    shifter,
		Checkpoint: checkpointSim,
		Stats:      statsStore,
	})
	return ctrl, store
}

func TestGetRegionUnknownReturnsErrUnsupportedRegion(t *testing.T) {
	ctrl, _ := newTestController(t)
	_, err := ctrl.GetRegion("nowhere")
	if err != domain.ErrUnsupportedRegion {
		t.Errorf("error = %v, want ErrUnsupportedRegion", err)
	}
}

func TestGetRegionReturnsConfiguredAZs(t *testing.T) {
	ctrl, store := newTestController(t)
	store.SetPrices("francecentral", []domain.SpotObservation{{SKU: "NC6s_v3", GPUName: "V100", RAMGB: 112, SpotPriceUSDHr: 3.0}})

	info, err := ctrl.GetRegion("francecentral")
	if err != nil {
		t.Fatalf("GetRegion() error = %v", err)
	}
	if info.RegionID != "francecentral" {
		t.Errorf("RegionID = %q, want francecentral", info.RegionID)
	}
	if len(info.AvailabilityZones) != 3 {
		t.Fatalf("len(AvailabilityZones) = %d, want 3", len(info.AvailabilityZones))
	}
	if len(info.AvailabilityZones[0].GPUInstances) != 1 {
		t.Errorf("len(GPUInstances) = %d, want 1", len(info.AvailabilityZones[0].GPUInstances))
	}
}

func TestListAZsUnknownRegion(t *testing.T) {
	ctrl, _ := newTestController(t)
	if _, err := ctrl.ListAZs("nowhere"); err != domain.ErrUnsupportedRegion {
		t.Errorf("error = %v, want ErrUnsupportedRegion", err)
	}
}

func TestSimulateInterruptionRequiresCurrentAZ(t *testing.T) {
	ctrl, _ := newTestController(t)
	_, err := ctrl.SimulateInterruption(domain.CheckpointSimulateRequest{})
	if err == nil {
		t.Fatal("expected an error when CurrentAZ is empty")
	}
}

func TestSimulateInterruptionSucceeds(t *testing.T) {
	ctrl, _ := newTestController(t)
	event, err := ctrl.SimulateInterruption(domain.CheckpointSimulateRequest{
		JobID:       "job-1",
		CurrentAZ:   "fr-central-1",
		ModelSizeGB: 10,
	})
	if err != nil {
		t.Fatalf("SimulateInterruption() error = %v", err)
	}
	if event.ToAZ != "fr-central-2" {
		t.Errorf("ToAZ = %q, want fr-central-2", event.ToAZ)
	}
}

func TestDashboardStatsReflectsSimulateOutcome(t *testing.T) {
	ctrl, store := newTestController(t)
	store.SetPrices("francecentral", []domain.SpotObservation{
		{SKU: "NC6s_v3", GPUName: "V100", RAMGB: 112, SpotPriceUSDHr: 3.0, OnDemandPriceUSDHr: 6.0, Availability: domain.High},
	})

	_, err := ctrl.Simulate(domain.SimulateRequest{
		EstimatedGPUHours: 2,
		Deadline:          time.Now().UTC().Add(48 * time.Hour),
		MinGPUMemoryGB:    16,
		PreferredRegion:   "francecentral",
	})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	stats := ctrl.DashboardStats()
	if stats.TotalJobsManaged != 1 {
		t.Errorf("TotalJobsManaged = %d, want 1", stats.TotalJobsManaged)
	}
}

func TestSubscribeEventsReceivesCheckpointEvent(t *testing.T) {
	ctrl, _ := newTestController(t)
	events, unsubscribe := ctrl.SubscribeEvents(4)
	defer unsubscribe()

	if _, err := ctrl.SimulateInterruption(domain.CheckpointSimulateRequest{CurrentAZ: "fr-central-1", ModelSizeGB: 1}); err != nil {
		t.Fatalf("SimulateInterruption() error = %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != domain.EventCheckpoint {
			t.Errorf("first event type = %v, want %v", ev.Type, domain.EventCheckpoint)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for checkpoint event")
	}
}
