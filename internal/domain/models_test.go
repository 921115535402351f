package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAvailabilityScore(t *testing.T) {
	tests := []struct {
		name string
		a    Availability
		want float64
	}{
		{"high", High, 1.0},
		{"medium", Medium, 0.7},
		{"low", Low, 0.4},
		{"very_low", VeryLow, 0.1},
		{"unknown", Availability("bogus"), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Score(); got != tt.want {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailabilityDowngrade(t *testing.T) {
	tests := []struct {
		name string
		a    Availability
		want Availability
	}{
		{"high downgrades to medium", High, Medium},
		{"medium downgrades to low", Medium, Low},
		{"low stays low", Low, Low},
		{"very_low stays very_low", VeryLow, VeryLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Downgrade(); got != tt.want {
				t.Errorf("Downgrade() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBandCarbonIndex(t *testing.T) {
	tests := []struct {
		gco2 float64
		want CarbonIndex
	}{
		{0, VeryLowCarbon},
		{79.9, VeryLowCarbon},
		{80, LowCarbon},
		{149.9, LowCarbon},
		{150, Moderate},
		{249.9, Moderate},
		{250, HighCarbon},
		{399.9, HighCarbon},
		{400, VeryHighCarbon},
		{900, VeryHighCarbon},
	}
	for _, tt := range tests {
		if got := BandCarbonIndex(tt.gco2); got != tt.want {
			t.Errorf("BandCarbonIndex(%v) = %v, want %v", tt.gco2, got, tt.want)
		}
	}
}

func TestEventMarshalJSONFlattensFields(t *testing.T) {
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	event := Event{
		Type:      EventAZPriceUpdate,
		Timestamp: ts,
		Fields: map[string]interface{}{
			"region": "francecentral",
			"sku":    "NC6s_v3",
		},
	}

	raw, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if out["type"] != string(EventAZPriceUpdate) {
		t.Errorf("type = %v, want %v", out["type"], EventAZPriceUpdate)
	}
	if out["region"] != "francecentral" {
		t.Errorf("region = %v, want francecentral", out["region"])
	}
	if out["sku"] != "NC6s_v3" {
		t.Errorf("sku = %v, want NC6s_v3", out["sku"])
	}
	if _, ok := out["timestamp"]; !ok {
		t.Error("expected timestamp field in flattened output")
	}
}
