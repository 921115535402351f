// Package bootstrap wires together a full NERVE engine instance — cache,
// fetchers, scorer, time-shifter, checkpoint simulator, and stats store
// — from a Config. Every transport entrypoint (web, lambda, cli) calls
// Build once at startup instead of repeating the wiring.
package bootstrap

import (
	"fmt"

	"github.com/nerve-engine/nerve/internal/cache"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/checkpoint"
	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/controller"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerve-engine/nerve/internal/fetchers"
	"github.com/nerve-engine/nerve/internal/metrics"
	"github.com/nerve-engine/nerve/internal/scorer"
	"github.com/nerve-engine/nerve/internal/scraper"
	"github.com/nerve-engine/nerve/internal/stats"
	"github.com/nerve-engine/nerve/internal/timeshift"
	"github.com/nerve-engine/nerve/internal/vision"
)

// Engine bundles every component an entrypoint needs: the Controller for
// serving operations, the Loop for the periodic scrape cycle, and the
// Stats store so the caller can flush it on shutdown.
type Engine struct {
	Controller *controller.Controller
	Loop       *scraper.Loop
	Store      *cache.Store
	Stats      *stats.Store
	Registry   *prometheus.Registry
}

// Build constructs a complete Engine from cfg.
func Build(cfg *config.Config) (*Engine, error) {
	store := cache.New(cfg.Scraper.HistoryCapacity, cfg.Scraper.MaxErrorLog)
	registry := prometheus.NewRegistry()
	metricsCollector := metrics.New(registry)

	priceFetcher, err := fetchers.NewPriceFetcher("azure")
	if err != nil {
		return nil, fmt.Errorf("build price fetcher: %w", err)
	}
	weatherFetcher, err := fetchers.NewWeatherFetcher("open-meteo")
	if err != nil {
		return nil, fmt.Errorf("build weather fetcher: %w", err)
	}
	carbonFetcher, err := fetchers.NewCarbonFetcher("uk-carbon-intensity")
	if err != nil {
		return nil, fmt.Errorf("build carbon fetcher: %w", err)
	}

	var visionWriter *vision.Writer
	if cfg.Vision.Enabled {
		visionWriter = vision.NewWriter(cfg.Vision.FilePath)
	}

	loop := scraper.New(store, scraper.Config{
		Price:        priceFetcher,
		Weather:      weatherFetcher,
		Carbon:       carbonFetcher,
		Regions:      catalog.Regions,
		FetchTimeout: cfg.Scraper.AzureTimeout,
		VisionWriter: visionWriter,
		Metrics:      metricsCollector,
	})

	statsStore, err := stats.New(cfg.Stats.FilePath, cfg.Stats.SQLitePath, cfg.Scoring.EURPerUSD, catalog.RegionIDs())
	if err != nil {
		return nil, fmt.Errorf("build stats store: %w", err)
	}

	shifter := timeshift.New(store, cfg.Scoring.TimeShiftThresholdPct)
	scorerEngine := scorer.New(store, statsStore, shifter, &cfg.Scoring)
	checkpointSim := checkpoint.New(store, statsStore)

	ctrl := controller.New(controller.Deps{
		Store:      store,
		Scorer:     scorerEngine,
		Shifter:    shifter,
		Checkpoint: checkpointSim,
		Stats:      statsStore,
		Metrics:    metricsCollector,
	})

	return &Engine{Controller: ctrl, Loop: loop, Store: store, Stats: statsStore, Registry: registry}, nil
}

// EnsureRegion validates regionID against the static catalog, returning
// domain.ErrUnsupportedRegion when unknown. Exported so CLI commands can
// validate flags before invoking a Controller method.
func EnsureRegion(regionID string) error {
	if regionID == "" {
		return nil
	}
	if _, ok := catalog.RegionByID(regionID); !ok {
		return domain.ErrUnsupportedRegion
	}
	return nil
}
