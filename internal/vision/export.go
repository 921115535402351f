// Package vision renders the post-cycle "vision JSON" summary document
// (§4.D step 9, §12): a full snapshot of every region's per-AZ GPU
// pricing, weather, and carbon intensity, plus the scoring weights, for
// external dashboards to poll without hitting the live APIs themselves.
package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/nerve-engine/nerve/internal/azvariation"
	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/domain"
)

// SchemaVersion is the vision document's format version, kept in lockstep
// with the original summary exporter's "2.0".
const SchemaVersion = "2.0"

// Writer atomically persists a vision document to disk after each scrape
// cycle.
type Writer struct {
	path string
}

// NewWriter constructs a Writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

type document struct {
	Metadata      metadata                  `json:"metadata"`
	Regions       map[string]regionSummary  `json:"regions"`
	ScoringWeight scoringWeights            `json:"scoring_weights"`
}

type metadata struct {
	ScrapeTimestamp time.Time `json:"scrape_timestamp"`
	Version         string    `json:"version"`
	ScrapeCount     int64     `json:"scrape_count"`
	Sources         []string  `json:"sources"`
	TargetRegions   []string  `json:"target_regions"`
}

type scoringWeights struct {
	Price        float64 `json:"w_price"`
	Carbon       float64 `json:"w_carbon"`
	Availability float64 `json:"w_availability"`
	Cooling      float64 `json:"w_cooling"`
	Renewable    float64 `json:"w_renewable"`
}

type regionSummary struct {
	Location           string               `json:"location"`
	Coordinates        coordinates          `json:"coordinates"`
	AvailabilityZones  map[string]azSummary `json:"availability_zones"`
	Weather            weatherSummary       `json:"weather"`
	CarbonIntensity    carbonSummary        `json:"carbon_intensity"`
}

type coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

type azSummary struct {
	Name          string       `json:"name"`
	GPUSpotPrices []azGPUPrice `json:"gpu_spot_prices"`
}

type azGPUPrice struct {
	SKU                string              `json:"sku"`
	GPU                string              `json:"gpu"`
	GPUCount           int                 `json:"gpu_count"`
	VCPUs              int                 `json:"vcpus"`
	RAMGB              float64             `json:"ram_gb"`
	SpotPriceUSDHr     float64             `json:"spot_price_usd_hr"`
	OnDemandPriceUSDHr float64             `json:"ondemand_price_usd_hr"`
	SavingsPct         float64             `json:"savings_pct"`
	Availability       domain.Availability `json:"availability"`
}

type weatherSummary struct {
	Source             string                 `json:"source"`
	CurrentTempC       float64                `json:"current_temp_c"`
	CurrentWindKmh     float64                `json:"current_wind_kmh"`
	CurrentSolarWm2    float64                `json:"current_solar_wm2"`
	HourlyForecast     []domain.HourlyWeather `json:"hourly_forecast"`
	CoolingAdvantage   string                 `json:"cooling_advantage"`
	RenewablePotential string                 `json:"renewable_potential"`
}

type carbonSummary struct {
	Source         string             `json:"source"`
	CurrentGCO2KWh float64            `json:"current_gco2_kwh"`
	Index          domain.CarbonIndex `json:"index"`
}

// Export renders and atomically persists the vision document for the
// given regions from the cache's current state.
func (w *Writer) Export(regions []domain.Region, store *cache.Store) error {
	doc := document{
		Metadata: metadata{
			ScrapeTimestamp: time.Now().UTC(),
			Version:         SchemaVersion,
			ScrapeCount:     store.ScrapeCount(),
			Sources: []string{
				"Azure Retail Prices API (live)",
				"Open-Meteo API (live)",
				"Carbon Intensity UK API (live)",
				"NERVE physics-based carbon model (FR/NL)",
			},
		},
		Regions: make(map[string]regionSummary, len(regions)),
		ScoringWeight: scoringWeights{
			Price: 0.50, Carbon: 0.20, Availability: 0.15, Cooling: 0.10, Renewable: 0.05,
		},
	}

	for _, region := range regions {
		doc.Metadata.TargetRegions = append(doc.Metadata.TargetRegions, region.ID)
		doc.Regions[region.ID] = buildRegionSummary(region, store)
	}

	return w.writeAtomic(doc)
}

func buildRegionSummary(region domain.Region, store *cache.Store) regionSummary {
	prices, weather, carbon := store.Snapshot(region.ID)

	azs := make(map[string]azSummary, len(region.AZs))
	for _, az := range region.AZs {
		gpus := make([]azGPUPrice, 0, len(prices))
		for _, p := range prices {
			azSpot := azvariation.PriceJitter(p.SpotPriceUSDHr, az.ID, p.SKU, time.Now().UTC().Hour())
			savings := p.SavingsPct
			if p.OnDemandPriceUSDHr > 0 {
				savings = round1((1 - azSpot/p.OnDemandPriceUSDHr) * 100)
			}
			baseAvail := p.Availability
			azAvail := azvariation.AvailabilityShift(baseAvail, az.ID)

			gpus = append(gpus, azGPUPrice{
				SKU:                p.SKU,
				GPU:                p.GPUName,
				GPUCount:           p.GPUCount,
				VCPUs:              p.VCPUs,
				RAMGB:              p.RAMGB,
				SpotPriceUSDHr:     round4(azSpot),
				OnDemandPriceUSDHr: round4(p.OnDemandPriceUSDHr),
				SavingsPct:         savings,
				Availability:       azAvail,
			})
		}
		azs[az.ID] = azSummary{Name: az.Name, GPUSpotPrices: gpus}
	}

	cooling := "poor"
	switch {
	case weather.CurrentTempC < 10:
		cooling = "good"
	case weather.CurrentTempC < 18:
		cooling = "moderate"
	}

	renewParts := []string{windDescription(weather.CurrentWindKmh), solarDescription(weather.CurrentSolarWm2)}
	renew := renewParts[0] + ", " + renewParts[1]

	carbonIndex := carbon.Index
	if carbonIndex == "" {
		carbonIndex = domain.Moderate
	}
	gco2 := carbon.GCO2KWh
	if gco2 == 0 {
		gco2 = 100
	}

	return regionSummary{
		Location:    region.Location,
		Coordinates: coordinates{Lat: region.Lat, Lon: region.Lon},
		AvailabilityZones: azs,
		Weather: weatherSummary{
			Source:             "open-meteo.com (live)",
			CurrentTempC:       weather.CurrentTempC,
			CurrentWindKmh:     weather.CurrentWindKmh,
			CurrentSolarWm2:    weather.CurrentSolarWm2,
			HourlyForecast:     weather.Hourly,
			CoolingAdvantage:   fmt.Sprintf("%s - %.1f°C", cooling, weather.CurrentTempC),
			RenewablePotential: renew,
		},
		CarbonIntensity: carbonSummary{
			Source:         orDefault(carbon.Source, "unknown"),
			CurrentGCO2KWh: gco2,
			Index:          carbonIndex,
		},
	}
}

func windDescription(wind float64) string {
	switch {
	case wind > 20:
		return fmt.Sprintf("high wind (%.0f km/h)", wind)
	case wind > 10:
		return fmt.Sprintf("moderate wind (%.0f km/h)", wind)
	default:
		return fmt.Sprintf("low wind (%.0f km/h)", wind)
	}
}

func solarDescription(solar float64) string {
	switch {
	case solar > 200:
		return fmt.Sprintf("high solar (%.0f W/m2)", solar)
	case solar > 50:
		return fmt.Sprintf("moderate solar (%.0f W/m2)", solar)
	default:
		return fmt.Sprintf("low solar (%.0f W/m2)", solar)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// writeAtomic writes doc to a temp file in the same directory as w.path,
// then renames it into place so readers never observe a partial write
// (§4.J discipline, reused here for the vision document).
func (w *Writer) writeAtomic(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vision document: %w", err)
	}

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".vision-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
