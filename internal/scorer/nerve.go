// Package scorer implements the NERVE Scorer (§4.G): the weighted
// five-component scoring pass that picks a primary placement and a
// fallback for a SimulateRequest, plus the savings/green-impact/
// risk-assessment bookkeeping that goes with it.
package scorer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerve-engine/nerve/internal/azvariation"
	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
)

// Weights holds the five NERVE scoring weights (§4.G). Always sums to 1.0.
type Weights struct {
	Price        float64
	Carbon       float64
	Availability float64
	Cooling      float64
	Renewable    float64
}

// candidate is one (region, AZ, SKU) tuple materialized through the §4.F
// per-AZ projection, ready to be scored.
type candidate struct {
	region domain.Region
	az     domain.AZDescriptor
	obs    domain.AZProjectedObservation
	score  float64
}

// Engine runs the NERVE scoring pass against a cache Store.
type Engine struct {
	store      *cache.Store
	weights    Weights
	eurPerUSD  float64
	pue        float64
	statsStore *stats.Store
	shifter    *timeshift.Shifter
}

// New constructs an Engine bound to store and statsStore, using cfg's
// scoring weights.
func New(store *cache.Store, statsStore *stats.Store, shifter *timeshift.Shifter, cfg *config.ScoringConfig) *Engine {
	return &Engine{
		store: store,
		weights: Weights{
			Price:        cfg.WeightPrice,
			Carbon:       cfg.WeightCarbon,
			Availability: cfg.WeightAvailability,
			Cooling:      cfg.WeightCooling,
			Renewable:    cfg.WeightRenewable,
		},
		eurPerUSD:  cfg.EURPerUSD,
		pue:        cfg.PUE,
		statsStore: statsStore,
		shifter:    shifter,
	}
}

// Simulate runs the full §4.G procedure for req and returns the NERVE
// placement decision. Returns domain.ErrNoFit if no candidate meets
// req.MinGPUMemoryGB, and domain.ErrUnsupportedRegion if req names a
// region the engine does not track.
func (e *Engine) Simulate(req domain.SimulateRequest) (domain.SimulateResponse, error) {
	regions, err := e.candidateRegions(req.PreferredRegion)
	if err != nil {
		return domain.SimulateResponse{}, err
	}

	best, fallback, found := e.selectBestAndFallback(regions, req.MinGPUMemoryGB)
	if !found {
		return domain.SimulateResponse{}, domain.ErrNoFit
	}
	if fallback == nil {
		fallback = best
	}

	plan := e.shifter.ComputePlan(domain.TimeShiftRequest{
		JobType:           req.JobType,
		EstimatedGPUHours: req.EstimatedGPUHours,
		Deadline:          req.Deadline,
		MinGPUMemoryGB:    req.MinGPUMemoryGB,
		PreferredRegion:   best.region.ID,
		Flexible:          true,
	})

	strategy := domain.Immediate
	var optimalStart *time.Time
	if plan.Recommended {
		strategy = domain.TimeShifted
		optimalStart = plan.OptimalWindowStart
	}

	now := time.Now().UTC()
	gpuFamily := gpuFamilyFromName(best.obs.GPUName)
	kwhPerHr := catalog.KWhPerFamily(gpuFamily)

	spotTotal := best.obs.SpotPriceUSDHr * req.EstimatedGPUHours
	onDemandTotal := best.obs.OnDemandPriceUSDHr * req.EstimatedGPUHours
	savingsUSD := onDemandTotal - spotTotal
	timeShiftBonus := 0.0
	if strategy == domain.TimeShifted {
		timeShiftBonus = savingsUSD * 0.08
	}

	totalKWh := kwhPerHr * req.EstimatedGPUHours * e.pue
	totalCO2 := totalKWh * best.obs.CarbonGCO2KWh
	worstCO2 := totalKWh * 500
	co2Saved := worstCO2 - totalCO2

	startTime := now
	if optimalStart != nil {
		startTime = *optimalStart
	}

	risk := domain.RiskLow
	if best.obs.Availability != domain.High && best.obs.Availability != domain.Medium {
		risk = domain.RiskMedium
	}

	jobID := uuid.NewString()

	resp := domain.SimulateResponse{
		JobID: jobID,
		Decision: domain.Decision{
			PrimaryRegion:    best.region.ID,
			PrimaryAZ:        best.az.ID,
			GPUSKU:           best.obs.SKU,
			GPUName:          best.obs.GPUName,
			SpotPriceUSDHr:   best.obs.SpotPriceUSDHr,
			StartStrategy:    strategy,
			OptimalStartTime: optimalStart,
			Reason: fmt.Sprintf("best NERVE score (%.3f) — %.1f%% cheaper than on-demand, carbon %s",
				best.score, best.obs.SavingsPct, domain.BandCarbonIndex(best.obs.CarbonGCO2KWh)),
		},
		Fallback: domain.Fallback{
			SecondaryAZ:    fallback.az.ID,
			SecondarySKU:   fallback.obs.SKU,
			FallbackReason: "standby AZ in case of spot interruption",
		},
		Checkpointing: domain.CheckpointConfig{
			RecommendedIntervalMin:    req.CheckpointIntervalMin,
			StorageTarget:             "s3",
			EstimatedCheckpointSizeGB: float64(req.MinGPUMemoryGB) * 0.8,
			Reason: fmt.Sprintf("checkpoint every %d min to S3 — resume guaranteed in < 90s",
				req.CheckpointIntervalMin),
		},
		Savings: domain.Savings{
			SpotCostTotalUSD:         round2(spotTotal),
			OnDemandCostTotalUSD:     round2(onDemandTotal),
			SavingsUSD:               round2(savingsUSD),
			SavingsEUR:               round2(savingsUSD * e.eurPerUSD),
			SavingsPct:               round1(best.obs.SavingsPct),
			TimeShiftExtraSavingsUSD: round2(timeShiftBonus),
		},
		GreenImpact: domain.GreenImpact{
			CarbonIntensityGCO2KWh: best.obs.CarbonGCO2KWh,
			TotalEnergyKWh:         round2(totalKWh),
			TotalCO2Grams:          round1(totalCO2),
			CO2VsWorstRegionGrams:  round1(worstCO2),
			CO2SavedGrams:          round1(co2Saved),
			Equivalent:             fmt.Sprintf("equivalent to %.1f car-km avoided", co2Saved/120),
		},
		ServerPath: []domain.ServerStep{
			{Step: 1, Action: "launch job on spot GPU", Region: best.region.ID, AZ: best.az.ID, GPU: best.obs.SKU, Time: startTime},
			{Step: 2, Action: "checkpoint saved to S3 (automatic)", Region: best.region.ID, AZ: best.az.ID, GPU: best.obs.SKU, Time: startTime},
			{Step: 3, Action: "job complete — results available", Region: best.region.ID, AZ: best.az.ID, GPU: best.obs.SKU, Time: req.Deadline},
		},
		RiskAssessment: domain.RiskAssessment{
			SpotInterruptionProbability: risk,
			EvictionMitigation:          "Smart Checkpointing + AZ-Hopping",
			MaxEvictionsPerHour:         2,
		},
	}

	e.statsStore.RecordJob(jobID, savingsUSD, co2Saved)

	return resp, nil
}

func (e *Engine) candidateRegions(preferred string) ([]domain.Region, error) {
	if preferred == "" {
		return catalog.Regions, nil
	}
	region, ok := catalog.RegionByID(preferred)
	if !ok {
		return nil, domain.ErrUnsupportedRegion
	}
	return []domain.Region{region}, nil
}

// selectBestAndFallback materializes every (region, AZ, SKU) candidate in
// stable iteration order and tracks the running minimum plus the
// previously-best candidate as fallback (§4.G steps 2-4).
func (e *Engine) selectBestAndFallback(regions []domain.Region, minMemoryGB int) (best, fallback *candidate, found bool) {
	bestScore := math.Inf(1)

	for _, region := range regions {
		prices := e.store.Prices(region.ID)
		weather := e.store.Weather(region.ID)
		carbon := e.store.Carbon(region.ID)

		for _, az := range region.AZs {
			for _, obs := range prices {
				if obs.RAMGB < float64(minMemoryGB) {
					continue
				}

				projected := e.project(obs, az.ID, weather, carbon)
				score := e.score(projected)

				c := candidate{region: region, az: az, obs: projected, score: score}

				if score < bestScore {
					if found {
						fallback = cloneCandidate(best)
					}
					bestScore = score
					best = cloneCandidate(&c)
					found = true
				} else if fallback == nil && found {
					fallback = cloneCandidate(&c)
				}
			}
		}
	}

	return best, fallback, found
}

func cloneCandidate(c *candidate) *candidate {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

// project applies the §4.F deterministic AZ jitter/shift to obs and
// attaches the region's current weather and carbon readings.
func (e *Engine) project(obs domain.SpotObservation, azID string, weather domain.WeatherObservation, carbon domain.CarbonObservation) domain.AZProjectedObservation {
	hour := time.Now().UTC().Hour()
	azSpot := azvariation.PriceJitter(obs.SpotPriceUSDHr, azID, obs.SKU, hour)
	azAvail := azvariation.AvailabilityShift(obs.Availability, azID)

	savingsPct := obs.SavingsPct
	if obs.OnDemandPriceUSDHr > 0 {
		savingsPct = (1 - azSpot/obs.OnDemandPriceUSDHr) * 100
	}

	projected := obs
	projected.SpotPriceUSDHr = azSpot
	projected.Availability = azAvail
	projected.SavingsPct = savingsPct

	return domain.AZProjectedObservation{
		SpotObservation: projected,
		AZID:            azID,
		TemperatureC:    weather.CurrentTempC,
		WindKmh:         weather.CurrentWindKmh,
		CarbonGCO2KWh:   carbon.GCO2KWh,
	}
}

// score computes the five-component weighted NERVE score for a projected
// observation (§4.G step 2). Lower is better.
func (e *Engine) score(obs domain.AZProjectedObservation) float64 {
	normPrice := math.Min(obs.SpotPriceUSDHr/15.0, 1.0)
	normCarbon := math.Min(obs.CarbonGCO2KWh/500.0, 1.0)
	availScore := obs.Availability.Score()
	normCooling := math.Min(math.Max(obs.TemperatureC, 0)/40.0, 1.0)
	renewScore := math.Min(obs.WindKmh/50.0, 1.0)

	return e.weights.Price*normPrice +
		e.weights.Carbon*normCarbon +
		e.weights.Availability*(1-availScore) +
		e.weights.Cooling*normCooling +
		e.weights.Renewable*(1-renewScore)
}

func gpuFamilyFromName(gpuName string) string {
	lower := strings.ToLower(gpuName)
	for _, fam := range []string{"h100", "a100", "a10", "v100", "t4", "mi25", "m60"} {
		if strings.Contains(lower, fam) {
			return fam
		}
	}
	return "v100"
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
