package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScrapeCycle("francecentral", 150*time.Millisecond)
	m.RecordFetcherError("azure", "francecentral")
	m.RecordSimulate("ok")
	m.CacheRegionsTracked.Set(3)
	m.RecordCheckpointEvent("migration")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, want := range []string{
		"nerve_scrape_cycle_duration_seconds",
		"nerve_fetcher_errors_total",
		"nerve_cache_regions_tracked",
		"nerve_simulate_total",
		"nerve_checkpoint_events_total",
	} {
		if !names[want] {
			t.Errorf("expected metric %q to be registered, got families %v", want, names)
		}
	}
}

func TestRecordSimulateIncrementsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordSimulate("ok")
	m.RecordSimulate("ok")
	m.RecordSimulate("error")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	var okCount, errCount float64
	for _, f := range families {
		if f.GetName() != "nerve_simulate_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "outcome" {
					if label.GetValue() == "ok" {
						okCount = metric.GetCounter().GetValue()
					}
					if label.GetValue() == "error" {
						errCount = metric.GetCounter().GetValue()
					}
				}
			}
		}
	}

	if okCount != 2 {
		t.Errorf("ok counter = %v, want 2", okCount)
	}
	if errCount != 1 {
		t.Errorf("error counter = %v, want 1", errCount)
	}
}
