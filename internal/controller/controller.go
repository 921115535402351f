// Package controller provides the transport-agnostic entrypoint for
// NERVE. It exposes exactly the seven inbound operations of §6
// (get_region, list_azs, simulate, simulate_interruption,
// compute_timeshift, dashboard_stats, subscribe_events), wiring together
// the cache, scorer, time-shifter, checkpoint simulator, and stats
// store. The web, lambda, and CLI transports each hold one Controller
// and translate their own request shapes into its methods.
package controller

import (
	"fmt"
	"time"

	"github.com/nerve-engine/nerve/internal/azvariation"
	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/checkpoint"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
	"github.com/nerve-engine/nerve/internal/metrics"
	"github.com/nerve-engine/nerve/internal/scorer"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
)

// Controller provides programmatic access to every NERVE operation.
type Controller struct {
	cfg    *config.Config
	logger *logging.Logger

	store      *cache.Store
	scorer     *scorer.Engine
	shifter    *timeshift.Shifter
	checkpoint *checkpoint.Simulator
	stats      *stats.Store
	metrics    *metrics.Metrics
}

// Deps bundles the engines a Controller wires together. Constructed once
// at startup by each transport's main.
type Deps struct {
	Store      *cache.Store
	Scorer     *scorer.Engine
	Shifter    *timeshift.Shifter
	Checkpoint *checkpoint.Simulator
	Stats      *stats.Store
	Metrics    *metrics.Metrics // nil disables Prometheus instrumentation
}

// New creates a Controller bound to deps.
func New(deps Deps) *Controller {
	logger, err := logging.New(logging.Config{
		Level:       logging.INFO,
		LogDir:      config.Get().Logging.LogDir,
		EnableFile:  config.Get().Logging.EnableFile,
		EnableJSON:  config.Get().Logging.EnableJSON,
		EnableColor: config.Get().Logging.EnableColor,
		Component:   "controller",
		Version:     "1.0.0",
	})
	if err != nil || logger == nil {
		logger = logging.GetDefault()
	}
	return &Controller{
		cfg:        config.Get(),
		logger:     logger,
		store:      deps.Store,
		scorer:     deps.Scorer,
		shifter:    deps.Shifter,
		checkpoint: deps.Checkpoint,
		stats:      deps.Stats,
		metrics:    deps.Metrics,
	}
}

// GetRegion returns the full current snapshot for one region: its AZs,
// each AZ's projected GPU prices, and the region's weather/carbon
// readings (§6 get_region).
func (c *Controller) GetRegion(regionID string) (domain.RegionInfo, error) {
	region, ok := catalog.RegionByID(regionID)
	if !ok {
		c.logger.Warn("get_region: unknown region %s", regionID)
		return domain.RegionInfo{}, domain.ErrUnsupportedRegion
	}

	azs := c.buildAZInfo(region)

	c.logger.WithFields(logging.Fields{
		"region": regionID,
		"az_count": len(azs),
	}).Debug("get_region served")

	return domain.RegionInfo{
		RegionID:          region.ID,
		RegionName:        region.Name,
		CloudProvider:      "azure",
		Location:           region.Location,
		AvailabilityZones:  azs,
	}, nil
}

// ListAZs returns the per-AZ snapshot for one region without the region
// envelope (§6 list_azs).
func (c *Controller) ListAZs(regionID string) ([]domain.AZInfo, error) {
	region, ok := catalog.RegionByID(regionID)
	if !ok {
		return nil, domain.ErrUnsupportedRegion
	}
	return c.buildAZInfo(region), nil
}

func (c *Controller) buildAZInfo(region domain.Region) []domain.AZInfo {
	prices, weather, carbon := c.store.Snapshot(region.ID)

	hour := time.Now().UTC().Hour()
	azs := make([]domain.AZInfo, 0, len(region.AZs))
	for _, az := range region.AZs {
		instances := make([]domain.GPUInstance, 0, len(prices))
		for _, p := range prices {
			azSpot := azvariation.PriceJitter(p.SpotPriceUSDHr, az.ID, p.SKU, hour)
			savings := p.SavingsPct
			if p.OnDemandPriceUSDHr > 0 {
				savings = (1 - azSpot/p.OnDemandPriceUSDHr) * 100
			}
			instances = append(instances, domain.GPUInstance{
				SKU:                p.SKU,
				GPUName:            p.GPUName,
				GPUCount:           p.GPUCount,
				VCPUs:              p.VCPUs,
				RAMGB:              p.RAMGB,
				SpotPriceUSDHr:     azSpot,
				OnDemandPriceUSDHr: p.OnDemandPriceUSDHr,
				SavingsPct:         savings,
				Availability:       azvariation.AvailabilityShift(p.Availability, az.ID),
			})
		}

		azs = append(azs, domain.AZInfo{
			AZID:                   az.ID,
			AZName:                 az.Name,
			GPUInstances:           instances,
			CarbonIntensityGCO2KWh: carbon.GCO2KWh,
			CarbonIndex:            domain.BandCarbonIndex(carbon.GCO2KWh),
			TemperatureC:           weather.CurrentTempC,
			WindKmh:                weather.CurrentWindKmh,
		})
	}
	return azs
}

// Simulate runs the NERVE scorer for req (§6 simulate).
func (c *Controller) Simulate(req domain.SimulateRequest) (domain.SimulateResponse, error) {
	start := time.Now()
	resp, err := c.scorer.Simulate(req)
	if err != nil {
		c.logger.Warn("simulate failed job_type=%s region=%s: %v", req.JobType, req.PreferredRegion, err)
		c.recordSimulateOutcome("error")
		return domain.SimulateResponse{}, err
	}
	c.recordSimulateOutcome("ok")

	c.logger.WithFields(logging.Fields{
		"job_id":      resp.JobID,
		"duration_ms": time.Since(start).Milliseconds(),
		"region":      resp.Decision.PrimaryRegion,
		"az":          resp.Decision.PrimaryAZ,
		"sku":         resp.Decision.GPUSKU,
		"savings_usd": resp.Savings.SavingsUSD,
	}).Info("simulate completed")

	return resp, nil
}

// SimulateInterruption runs the checkpoint/migration protocol for req
// (§6 simulate_interruption).
func (c *Controller) SimulateInterruption(req domain.CheckpointSimulateRequest) (domain.CheckpointEvent, error) {
	if req.CurrentAZ == "" {
		return domain.CheckpointEvent{}, fmt.Errorf("currentAz is required")
	}
	event := c.checkpoint.Simulate(req)
	if c.metrics != nil {
		c.metrics.RecordCheckpointEvent("migration")
	}

	c.logger.WithFields(logging.Fields{
		"job_id":  req.JobID,
		"from_az": event.FromAZ,
		"to_az":   event.ToAZ,
	}).Info("simulate_interruption completed")

	return event, nil
}

func (c *Controller) recordSimulateOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordSimulate(outcome)
	}
}

// ComputeTimeshift returns the optimal-window recommendation for req
// (§6 compute_timeshift).
func (c *Controller) ComputeTimeshift(req domain.TimeShiftRequest) domain.TimeShiftPlan {
	plan := c.shifter.ComputePlan(req)
	c.logger.Debug("compute_timeshift region=%s recommended=%v", req.PreferredRegion, plan.Recommended)
	return plan
}

// DashboardStats returns the running tally of jobs placed, savings, and
// checkpoint/eviction counts (§6 dashboard_stats).
func (c *Controller) DashboardStats() domain.DashboardStats {
	return c.stats.Snapshot()
}

// SubscribeEvents opens a new event-bus subscription (§6 subscribe_events).
// The returned func must be called to release the subscription.
func (c *Controller) SubscribeEvents(buffer int) (<-chan domain.Event, func()) {
	return c.store.Subscribe(buffer)
}
