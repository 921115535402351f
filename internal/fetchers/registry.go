// Package fetchers implements the three external data sources of §4.B:
// Azure retail spot pricing, Open-Meteo weather, and UK grid carbon
// intensity. Each fetcher self-registers at init() time so the scraper
// loop never imports a concrete fetcher package directly.
package fetchers

import (
	"fmt"
	"sync"

	"github.com/nerve-engine/nerve/internal/domain"
)

var (
	mu              sync.RWMutex
	priceFetchers   = map[string]func() (domain.PriceFetcher, error){}
	weatherFetchers = map[string]func() (domain.WeatherFetcher, error){}
	carbonFetchers  = map[string]func() (domain.CarbonFetcher, error){}
)

// RegisterPriceFetcher registers a named price fetcher constructor. Called
// from each fetcher implementation's init().
func RegisterPriceFetcher(name string, creator func() (domain.PriceFetcher, error)) {
	mu.Lock()
	defer mu.Unlock()
	priceFetchers[name] = creator
}

// RegisterWeatherFetcher registers a named weather fetcher constructor.
func RegisterWeatherFetcher(name string, creator func() (domain.WeatherFetcher, error)) {
	mu.Lock()
	defer mu.Unlock()
	weatherFetchers[name] = creator
}

// RegisterCarbonFetcher registers a named carbon fetcher constructor.
func RegisterCarbonFetcher(name string, creator func() (domain.CarbonFetcher, error)) {
	mu.Lock()
	defer mu.Unlock()
	carbonFetchers[name] = creator
}

// NewPriceFetcher instantiates a registered price fetcher by name.
func NewPriceFetcher(name string) (domain.PriceFetcher, error) {
	mu.RLock()
	creator, ok := priceFetchers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no price fetcher registered for %q", name)
	}
	return creator()
}

// NewWeatherFetcher instantiates a registered weather fetcher by name.
func NewWeatherFetcher(name string) (domain.WeatherFetcher, error) {
	mu.RLock()
	creator, ok := weatherFetchers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no weather fetcher registered for %q", name)
	}
	return creator()
}

// NewCarbonFetcher instantiates a registered carbon fetcher by name.
func NewCarbonFetcher(name string) (domain.CarbonFetcher, error) {
	mu.RLock()
	creator, ok := carbonFetchers[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no carbon fetcher registered for %q", name)
	}
	return creator()
}
