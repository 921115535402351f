package carbonmodel

import (
	"testing"

	"github.com/nerve-engine/nerve/internal/domain"
)

func TestEstimateUnknownRegionFallsBackToDefault(t *testing.T) {
	obs := Estimate("atlantis", 10, 200)

	if obs.GCO2KWh != DefaultGCO2KWh {
		t.Errorf("GCO2KWh = %v, want %v", obs.GCO2KWh, DefaultGCO2KWh)
	}
	if obs.Index != domain.LowCarbon {
		t.Errorf("Index = %v, want %v", obs.Index, domain.LowCarbon)
	}
	if obs.Source != "default" {
		t.Errorf("Source = %q, want %q", obs.Source, "default")
	}
}

func TestEstimateKnownRegionVariesWithWeather(t *testing.T) {
	tests := []struct {
		name     string
		windKmh  float64
		solarWm2 float64
	}{
		{"no wind no sun", 0, 0},
		{"strong wind", 45, 0},
		{"full sun", 0, 800},
		{"wind and sun", 45, 800},
	}

	var results []float64
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := Estimate("westeurope", tt.windKmh, tt.solarWm2)
			if obs.Region != "westeurope" {
				t.Errorf("Region = %q, want westeurope", obs.Region)
			}
			if obs.GCO2KWh <= 0 {
				t.Errorf("GCO2KWh = %v, want > 0", obs.GCO2KWh)
			}
			results = append(results, obs.GCO2KWh)
		})
	}

	// More wind and sun displaces gas/coal, so the no-renewables baseline
	// should be the most carbon-intensive of the four readings.
	baseline := results[0]
	for i, r := range results[1:] {
		if r > baseline {
			t.Errorf("case %d: gco2 %v higher than no-renewables baseline %v", i+1, r, baseline)
		}
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	a := Estimate("francecentral", 20, 400)
	b := Estimate("francecentral", 20, 400)
	if a.GCO2KWh != b.GCO2KWh {
		t.Errorf("Estimate is not deterministic: %v != %v", a.GCO2KWh, b.GCO2KWh)
	}
}
