// Package domain contains interfaces that define contracts for the application.
package domain

import "context"

// PriceFetcher defines the Azure retail fetcher contract (§4.B). One call
// fetches and normalizes spot+on-demand observations for one region.
type PriceFetcher interface {
	FetchSpotObservations(ctx context.Context, region Region) ([]SpotObservation, error)
	Name() string
}

// WeatherFetcher defines the Open-Meteo fetcher contract (§4.B).
type WeatherFetcher interface {
	FetchWeather(ctx context.Context, region Region) (WeatherObservation, error)
	Name() string
}

// CarbonFetcher defines the UK carbon-intensity fetcher contract (§4.B).
// Only the UK region returns a value; other regions return ok=false and
// the caller falls back to the physics model.
type CarbonFetcher interface {
	FetchCarbon(ctx context.Context, region Region) (obs CarbonObservation, ok bool, err error)
	Name() string
}

// Scorer defines the NERVE scoring contract (§4.G).
type Scorer interface {
	Score(obs AZProjectedObservation) float64
}

// CacheProvider defines the generic short-TTL caching contract used by
// fetchers to avoid duplicate HTTP round-trips within one scrape cycle.
// This is distinct from the per-region observation Store (§4.C), which has
// its own atomic-snapshot contract rather than a generic key/value one.
type CacheProvider interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttlSeconds int)
	Delete(key string)
	Clear()
}

// Logger defines the logging interface used throughout the application.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}
