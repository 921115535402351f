// Package carbonmodel implements the physics-based grid carbon intensity
// estimate of §4.E: regions without a live carbon API synthesize a
// gCO2/kWh reading from the region's grid mix and the latest weather
// observation.
package carbonmodel

import (
	"fmt"
	"math"

	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/domain"
)

// DefaultGCO2KWh is used when a region has neither a live API reading nor
// a configured grid mix (§7 error kind 2).
const DefaultGCO2KWh = 100.0

// Estimate computes a region's carbon intensity from its grid mix and the
// current wind/solar readings. If the region has no configured grid mix,
// it returns the default "low" fallback.
func Estimate(regionID string, windKmh, solarWm2 float64) domain.CarbonObservation {
	mix, ok := catalog.GridMixes[regionID]
	if !ok {
		return domain.CarbonObservation{
			Region:  regionID,
			GCO2KWh: DefaultGCO2KWh,
			Index:   domain.LowCarbon,
			Source:  "default",
		}
	}

	windCF := clamp01((windKmh - 5) / 40.0)
	windShare := mix.WindMax * windCF

	solarCF := clamp01(solarWm2 / 800.0)
	solarShare := mix.SolarMax * solarCF

	cleanTotal := mix.Nuclear + mix.Hydro + windShare + solarShare
	gasShare := math.Max(1.0-cleanTotal-mix.CoalBase, mix.GasBase*0.5)

	gco2 := mix.Nuclear*catalog.EmissionFactors["nuclear"] +
		mix.Hydro*catalog.EmissionFactors["hydro"] +
		windShare*catalog.EmissionFactors["wind"] +
		solarShare*catalog.EmissionFactors["solar"] +
		gasShare*catalog.EmissionFactors["gas"] +
		mix.CoalBase*catalog.EmissionFactors["coal"]
	gco2 = round1(gco2)

	return domain.CarbonObservation{
		Region:  regionID,
		GCO2KWh: gco2,
		Index:   domain.BandCarbonIndex(gco2),
		Source: fmt.Sprintf("NERVE weather-based model (wind=%.0fkm/h, solar=%.0fW/m2)",
			windKmh, solarWm2),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
