// Package timeshift implements the Time-Shifter (§4.H): builds a 24-hour
// price/carbon curve for a region and searches it for the cheapest
// window to run a job before its deadline.
package timeshift

import (
	"fmt"
	"math"
	"time"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/domain"
)

// intradayFactor is the fixed 24-entry intraday multiplier table used to
// derive an hourly price curve from a region's current average spot
// price (§4.H price curve construction): night troughs around 0.60,
// midday peaks around 1.12.
var intradayFactor = [24]float64{
	0.62, 0.60, 0.61, 0.63, 0.66, 0.70,
	0.78, 0.88, 0.98, 1.08, 1.12, 1.11,
	1.09, 1.07, 1.04, 1.00, 0.95, 0.90,
	0.85, 0.80, 0.76, 0.72, 0.68, 0.65,
}

// LegacyPriceCurve24H is the fixed-table price curve from the original
// hackathon time-shifter, kept for the test-only >10%-threshold variant
// referenced in §4.H ("implementers pick one").
var LegacyPriceCurve24H = [24]float64{
	0.25, 0.18, 0.10, 0.08, 0.10, 0.15,
	0.30, 0.50, 0.65, 0.80, 0.95, 1.00,
	0.98, 0.95, 0.90, 0.82, 0.75, 0.70,
	0.60, 0.50, 0.42, 0.35, 0.30, 0.28,
}

// LegacyCarbonCurve24H is the matching fixed-table relative carbon curve.
var LegacyCarbonCurve24H = [24]float64{
	0.30, 0.25, 0.20, 0.18, 0.20, 0.25,
	0.35, 0.50, 0.60, 0.70, 0.75, 0.80,
	0.85, 0.80, 0.75, 0.70, 0.65, 0.70,
	0.80, 0.85, 0.75, 0.60, 0.45, 0.35,
}

// defaultThresholdPct is used when New is given a threshold <= 0 (§9
// open question, resolved to >5% for the live-curve variant — see
// DESIGN.md for the rationale).
const defaultThresholdPct = 5.0

// legacyRecommendThresholdPct is the threshold for LegacyPriceCurve24H
// (§4.H: "10% in the legacy curve-only variant").
const legacyRecommendThresholdPct = 10.0

// Shifter computes time-shift plans from a cache Store's live
// observations.
type Shifter struct {
	store        *cache.Store
	thresholdPct float64
}

// New constructs a Shifter bound to store, recommending a shift only when
// the price reduction exceeds thresholdPct (the config-driven §9 knob).
// A non-positive thresholdPct falls back to defaultThresholdPct.
func New(store *cache.Store, thresholdPct float64) *Shifter {
	if thresholdPct <= 0 {
		thresholdPct = defaultThresholdPct
	}
	return &Shifter{store: store, thresholdPct: thresholdPct}
}

// priceCurve is an hour-of-day -> USD/hr map built from a region's
// current observations.
type priceCurve [24]float64

// carbonCurve is an hour-of-day -> gCO2/kWh map built from a region's
// current carbon reading and forecast weather.
type carbonCurve [24]float64

// buildPriceCurve computes the §4.H price curve for region: the mean spot
// price across current observations, scaled hour-by-hour by
// intradayFactor. Empty observations fall back to a flat $0.50/hr.
func (s *Shifter) buildPriceCurve(regionID string) priceCurve {
	obs := s.store.Prices(regionID)
	if len(obs) == 0 {
		var flat priceCurve
		for i := range flat {
			flat[i] = 0.5
		}
		return flat
	}

	var sum float64
	for _, o := range obs {
		sum += o.SpotPriceUSDHr
	}
	avg := sum / float64(len(obs))

	var curve priceCurve
	for h := 0; h < 24; h++ {
		curve[h] = avg * intradayFactor[h]
	}
	return curve
}

// buildCarbonCurve computes the §4.H carbon curve for region: the current
// gCO2/kWh reading scaled per forecast hour by wind/solar displacement
// factors, falling back to the base reading past the 24 forecast rows.
func (s *Shifter) buildCarbonCurve(regionID string) carbonCurve {
	carbon := s.store.Carbon(regionID)
	weather := s.store.Weather(regionID)

	var curve carbonCurve
	for h := 0; h < 24; h++ {
		if h >= len(weather.Hourly) {
			curve[h] = carbon.GCO2KWh
			continue
		}
		hour := weather.Hourly[h]
		windFactor := math.Max(0.7, 1-hour.WindKmh/100)
		solarFactor := math.Max(0.8, 1-hour.SolarWm2/500)
		curve[h] = carbon.GCO2KWh * windFactor * solarFactor
	}
	return curve
}

// windowResult is the outcome of a window search over a curve.
type windowResult struct {
	start         *time.Time
	end           *time.Time
	priceReductPct float64
	carbonReductPct float64
}

// findOptimalWindow enumerates every feasible integer start offset before
// deadline and returns the one minimizing total price over the curve
// (§4.H window search). Returns a zero-value windowResult when the job
// cannot fit before the deadline.
func findOptimalWindow(gpuHours float64, deadline time.Time, prices priceCurve, carbons carbonCurve) windowResult {
	now := time.Now().UTC()
	hoursNeeded := int(gpuHours) + 1

	hoursUntilDeadline := deadline.Sub(now).Hours()
	if hoursUntilDeadline < gpuHours {
		return windowResult{}
	}

	maxOffset := int(hoursUntilDeadline-gpuHours) + 1
	bestCost := math.Inf(1)
	bestOffset := -1

	for offset := 0; offset < maxOffset; offset++ {
		candidateStart := now.Add(time.Duration(offset) * time.Hour)
		total := 0.0
		for k := 0; k < hoursNeeded; k++ {
			hour := (candidateStart.Hour() + k) % 24
			total += prices[hour]
		}
		if total < bestCost {
			bestCost = total
			bestOffset = offset
		}
	}

	if bestOffset < 0 {
		return windowResult{}
	}

	optimalStart := now.Add(time.Duration(bestOffset) * time.Hour)
	optimalEnd := optimalStart.Add(time.Duration(gpuHours * float64(time.Hour)))

	currentCost := 0.0
	for k := 0; k < hoursNeeded; k++ {
		currentCost += prices[(now.Hour()+k)%24]
	}
	priceReduction := 0.0
	if currentCost > 0 {
		priceReduction = math.Max((currentCost-bestCost)/currentCost*100, 0)
	}

	currentCarbon := 0.0
	optimalCarbon := 0.0
	for k := 0; k < hoursNeeded; k++ {
		currentCarbon += carbons[(now.Hour()+k)%24]
		optimalCarbon += carbons[(optimalStart.Hour()+k)%24]
	}
	carbonReduction := 0.0
	if currentCarbon > 0 {
		carbonReduction = math.Max((currentCarbon-optimalCarbon)/currentCarbon*100, 0)
	}

	return windowResult{
		start:           &optimalStart,
		end:             &optimalEnd,
		priceReductPct:  priceReduction,
		carbonReductPct: carbonReduction,
	}
}

// ComputePlan runs the full §4.H procedure for req and returns a
// TimeShiftPlan. Falls back to francecentral's curve when req names no
// preferred region.
func (s *Shifter) ComputePlan(req domain.TimeShiftRequest) domain.TimeShiftPlan {
	regionID := req.PreferredRegion
	if regionID == "" {
		regionID = catalog.DefaultRegionID
	}

	prices := s.buildPriceCurve(regionID)
	carbons := s.buildCarbonCurve(regionID)

	result := findOptimalWindow(req.EstimatedGPUHours, req.Deadline, prices, carbons)

	recommended := result.start != nil && result.priceReductPct > s.thresholdPct && req.Flexible
	meetsDeadline := true
	if result.end != nil && result.end.After(req.Deadline) {
		recommended = false
		meetsDeadline = false
	}

	now := time.Now().UTC()
	currentPrice := prices[now.Hour()]
	optimalPrice := currentPrice
	if result.start != nil {
		optimalPrice = prices[result.start.Hour()]
	}

	reason := "the current window is already optimal, or the deadline does not allow shifting"
	if recommended {
		reason = fmt.Sprintf("shifting the job to %s reduces cost by %.0f%% and carbon by %.0f%%",
			result.start.Format("15:04"), result.priceReductPct, result.carbonReductPct)
	}

	return domain.TimeShiftPlan{
		Recommended:             recommended,
		OptimalWindowStart:      result.start,
		OptimalWindowEnd:        result.end,
		Reason:                  reason,
		EstimatedSpotPriceUSDHr: round4(optimalPrice),
		CurrentSpotPriceUSDHr:   round4(currentPrice),
		PriceReductionPct:       round1(result.priceReductPct),
		CarbonReductionPct:      round1(result.carbonReductPct),
		MeetsDeadline:           meetsDeadline,
	}
}

// ComputeLegacyPlan mirrors ComputePlan but runs the fixed-table curves
// and the >10% threshold of the original hackathon time-shifter, kept for
// fixtures that need byte-for-byte legacy behavior.
func ComputeLegacyPlan(req domain.TimeShiftRequest) domain.TimeShiftPlan {
	var prices priceCurve = priceCurve(LegacyPriceCurve24H)
	var carbons carbonCurve = carbonCurve(LegacyCarbonCurve24H)

	result := findOptimalWindow(req.EstimatedGPUHours, req.Deadline, prices, carbons)

	recommended := result.start != nil && result.priceReductPct > legacyRecommendThresholdPct && req.Flexible
	meetsDeadline := true
	if result.end != nil && result.end.After(req.Deadline) {
		recommended = false
		meetsDeadline = false
	}

	const baseSpot = 0.6616
	now := time.Now().UTC()
	currentFactor := LegacyPriceCurve24H[now.Hour()]
	optimalFactor := currentFactor
	if result.start != nil {
		optimalFactor = LegacyPriceCurve24H[result.start.Hour()]
	}
	currentPrice := baseSpot * (0.5 + currentFactor)
	optimalPrice := baseSpot * (0.5 + optimalFactor)

	reason := "the current window is already optimal, or the deadline does not allow shifting"
	if recommended {
		reason = fmt.Sprintf("shifting the job to %s reduces cost by %.0f%% and carbon by %.0f%%",
			result.start.Format("15:04"), result.priceReductPct, result.carbonReductPct)
	}

	return domain.TimeShiftPlan{
		Recommended:             recommended,
		OptimalWindowStart:      result.start,
		OptimalWindowEnd:        result.end,
		Reason:                  reason,
		EstimatedSpotPriceUSDHr: round4(optimalPrice),
		CurrentSpotPriceUSDHr:   round4(currentPrice),
		PriceReductionPct:       round1(result.priceReductPct),
		CarbonReductionPct:      round1(result.carbonReductPct),
		MeetsDeadline:           meetsDeadline,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
