package vision

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/domain"
)

func TestExportWritesValidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision.json")
	writer := NewWriter(path)

	store := cache.New(0, 0)
	store.SetPrices("francecentral", []domain.SpotObservation{
		{SKU: "NC6s_v3", GPUName: "Tesla V100", RAMGB: 112, SpotPriceUSDHr: 1.5, OnDemandPriceUSDHr: 3.0, Availability: domain.High},
	})
	store.SetWeather("francecentral", domain.WeatherObservation{CurrentTempC: 8, CurrentWindKmh: 25, CurrentSolarWm2: 100})
	store.SetCarbon("francecentral", domain.CarbonObservation{GCO2KWh: 90, Index: domain.LowCarbon, Source: "test"})

	regions := []domain.Region{{
		ID:       "francecentral",
		Location: "Paris, France",
		Lat:      48.8566,
		Lon:      2.3522,
		AZs:      []domain.AZDescriptor{{ID: "fr-central-1", Name: "France Central AZ-1"}},
	}}

	if err := writer.Export(regions, store); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if doc.Metadata.Version != SchemaVersion {
		t.Errorf("Metadata.Version = %q, want %q", doc.Metadata.Version, SchemaVersion)
	}
	region, ok := doc.Regions["francecentral"]
	if !ok {
		t.Fatal("expected francecentral in document.Regions")
	}
	az, ok := region.AvailabilityZones["fr-central-1"]
	if !ok {
		t.Fatal("expected fr-central-1 in region.AvailabilityZones")
	}
	if len(az.GPUSpotPrices) != 1 {
		t.Fatalf("len(GPUSpotPrices) = %d, want 1", len(az.GPUSpotPrices))
	}
	if az.GPUSpotPrices[0].SKU != "NC6s_v3" {
		t.Errorf("SKU = %q, want NC6s_v3", az.GPUSpotPrices[0].SKU)
	}
}

func TestExportNoLiveCarbonUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vision.json")
	writer := NewWriter(path)

	store := cache.New(0, 0)
	regions := []domain.Region{{ID: "uksouth", Location: "London, UK"}}

	if err := writer.Export(regions, store); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	region := doc.Regions["uksouth"]
	if region.CarbonIntensity.CurrentGCO2KWh != 100 {
		t.Errorf("CurrentGCO2KWh = %v, want default 100", region.CarbonIntensity.CurrentGCO2KWh)
	}
	if region.CarbonIntensity.Source != "unknown" {
		t.Errorf("Source = %q, want unknown", region.CarbonIntensity.Source)
	}
}

func TestWindAndSolarDescription(t *testing.T) {
	if got := windDescription(25); got != "high wind (25 km/h)" {
		t.Errorf("windDescription(25) = %q", got)
	}
	if got := windDescription(15); got != "moderate wind (15 km/h)" {
		t.Errorf("windDescription(15) = %q", got)
	}
	if got := windDescription(5); got != "low wind (5 km/h)" {
		t.Errorf("windDescription(5) = %q", got)
	}
	if got := solarDescription(250); got != "high solar (250 W/m2)" {
		t.Errorf("solarDescription(250) = %q", got)
	}
}
