// Package scraper implements the Scraper Loop (§4.D): the periodic
// orchestrator that fans out the three Fetchers per region, writes the
// Cache, and emits price-change events.
package scraper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/carbonmodel"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
	"github.com/nerve-engine/nerve/internal/metrics"
	"github.com/nerve-engine/nerve/internal/vision"
)

// Loop drives the periodic scrape cycle described in §4.D.
type Loop struct {
	store   *cache.Store
	price   domain.PriceFetcher
	weather domain.WeatherFetcher
	carbon  domain.CarbonFetcher

	regions []domain.Region

	fetchTimeout time.Duration
	visionWriter *vision.Writer
	metrics      *metrics.Metrics // nil disables instrumentation

	cron    *cron.Cron
	entryID cron.EntryID

	cancel context.CancelFunc
}

// Config configures a Loop.
type Config struct {
	Price        domain.PriceFetcher
	Weather      domain.WeatherFetcher
	Carbon       domain.CarbonFetcher
	Regions      []domain.Region
	FetchTimeout time.Duration
	VisionWriter *vision.Writer   // nil disables vision JSON export
	Metrics      *metrics.Metrics // nil disables Prometheus instrumentation
}

// New constructs a Loop bound to store.
func New(store *cache.Store, cfg Config) *Loop {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Loop{
		store:        store,
		price:        cfg.Price,
		weather:      cfg.Weather,
		carbon:       cfg.Carbon,
		regions:      cfg.Regions,
		fetchTimeout: timeout,
		visionWriter: cfg.VisionWriter,
		metrics:      cfg.Metrics,
		cron:         cron.New(),
	}
}

// RunOnce performs a single scrape cycle synchronously, without starting
// the cron scheduler. Used by one-shot callers like the CLI that need a
// fresh snapshot before running a single command.
func (l *Loop) RunOnce(ctx context.Context) {
	l.runCycle(ctx)
}

// Start runs one immediate scrape, then schedules the 60s cron loop
// (§4.D). Cancelling ctx stops the cron scheduler; in-flight cycles are
// allowed to finish (§5 cancellation policy).
func (l *Loop) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.runCycle(loopCtx)

	entryID, err := l.cron.AddFunc("@every 60s", func() {
		l.runCycle(loopCtx)
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule scrape loop: %w", err)
	}
	l.entryID = entryID
	l.cron.Start()

	go func() {
		<-loopCtx.Done()
		l.cron.Stop()
	}()

	return nil
}

// Stop cancels the loop's context, halting future cycles.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}

// runCycle performs one full scrape cycle across all configured regions.
// A cycle never panics or propagates an error: failures are logged and
// recorded in the cache's bounded error log (§4.D failure policy).
func (l *Loop) runCycle(ctx context.Context) {
	var wg sync.WaitGroup
	for _, region := range l.regions {
		wg.Add(1)
		go func(region domain.Region) {
			defer wg.Done()
			l.scrapeRegion(ctx, region)
		}(region)
	}
	wg.Wait()

	l.store.MarkScraped(time.Now().UTC())

	if l.metrics != nil {
		l.metrics.CacheRegionsTracked.Set(float64(len(l.regions)))
	}

	if l.visionWriter != nil {
		if err := l.visionWriter.Export(l.regions, l.store); err != nil {
			logging.Warn("vision export failed: %v", err)
			l.store.RecordError(fmt.Sprintf("vision export: %v", err))
		}
	}
}

// scrapeRegion fans the three fetchers out concurrently for one region,
// tolerating any subset of failures (§4.D steps 1-2).
func (l *Loop) scrapeRegion(ctx context.Context, region domain.Region) {
	start := time.Now()
	var (
		newPrices []domain.SpotObservation
		weather   domain.WeatherObservation
		carbon    domain.CarbonObservation
		carbonOK  bool
	)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
		prices, err := l.price.FetchSpotObservations(fetchCtx, region)
		if err != nil {
			logging.Warn("price fetch failed region=%s: %v", region.ID, err)
			l.store.RecordError(domain.NewFetchError("azure", region.ID, err).Error())
			l.recordFetcherError("azure", region.ID)
			return
		}
		newPrices = prices
	}()

	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
		w, err := l.weather.FetchWeather(fetchCtx, region)
		weather = w
		if err != nil {
			l.store.RecordError(err.Error())
			l.recordFetcherError("weather", region.ID)
		}
	}()

	go func() {
		defer wg.Done()
		fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
		defer cancel()
		c, ok, err := l.carbon.FetchCarbon(fetchCtx, region)
		if err != nil {
			l.store.RecordError(err.Error())
			l.recordFetcherError("carbon", region.ID)
			return
		}
		carbon, carbonOK = c, ok
	}()

	wg.Wait()

	if l.metrics != nil {
		l.metrics.ObserveScrapeCycle(region.ID, time.Since(start))
	}

	oldPrices := l.store.Prices(region.ID)

	if weather.Region != "" {
		l.store.SetWeather(region.ID, weather)
	}

	if !carbonOK {
		w := l.store.Weather(region.ID)
		carbon = carbonmodel.Estimate(region.ID, w.CurrentWindKmh, w.CurrentSolarWm2)
	}
	l.store.SetCarbon(region.ID, carbon)

	if newPrices != nil {
		l.emitPriceChanges(region, oldPrices, newPrices)
		l.store.SetPrices(region.ID, newPrices)
		l.appendHistory(region.ID, newPrices)
	}
}

// emitPriceChanges compares old and new per-SKU spot prices and emits a
// price-update event for each SKU whose price changed (§4.D step 5). The
// event's az is the region's first configured AZ, per spec.
func (l *Loop) emitPriceChanges(region domain.Region, oldObs, newObs []domain.SpotObservation) {
	if len(region.AZs) == 0 {
		return
	}
	firstAZ := region.AZs[0].ID

	oldBySKU := make(map[string]domain.SpotObservation, len(oldObs))
	for _, o := range oldObs {
		oldBySKU[o.SKU] = o
	}

	for _, n := range newObs {
		old, existed := oldBySKU[n.SKU]
		if existed && old.SpotPriceUSDHr == n.SpotPriceUSDHr {
			continue
		}
		oldPrice := 0.0
		if existed {
			oldPrice = old.SpotPriceUSDHr
		}
		l.store.Publish(domain.Event{
			Type:      domain.EventAZPriceUpdate,
			Timestamp: time.Now().UTC(),
			Fields: map[string]interface{}{
				"region":    region.ID,
				"az":        firstAZ,
				"sku":       n.SKU,
				"gpu_name":  n.GPUName,
				"old_price": oldPrice,
				"new_price": n.SpotPriceUSDHr,
			},
		})
	}
}

// appendHistory summarizes one cycle's spot prices into a single
// price-history entry for the region (§4.D step 6).
func (l *Loop) appendHistory(regionID string, obs []domain.SpotObservation) {
	if len(obs) == 0 {
		return
	}

	var sum, min, max float64
	min = obs[0].SpotPriceUSDHr
	for _, o := range obs {
		sum += o.SpotPriceUSDHr
		if o.SpotPriceUSDHr < min {
			min = o.SpotPriceUSDHr
		}
		if o.SpotPriceUSDHr > max {
			max = o.SpotPriceUSDHr
		}
	}
	avg := sum / float64(len(obs))

	now := time.Now().UTC()
	l.store.AppendHistory(regionID, domain.PriceHistoryEntry{
		Timestamp:        now,
		HourUTC:          now.Hour(),
		AvgSpot:          avg,
		MinSpot:          min,
		MaxSpot:          max,
		AvgComputeFamily: avg,
		Count:            len(obs),
	})
}

// recordFetcherError increments the Prometheus error counter for fetcher
// in region, a no-op when instrumentation is disabled.
func (l *Loop) recordFetcherError(fetcher, region string) {
	if l.metrics != nil {
		l.metrics.RecordFetcherError(fetcher, region)
	}
}
