// Package cache implements the Cache component (§4.C): the engine's only
// shared mutable state. It holds per-region snapshots of prices, weather,
// and carbon; a bounded price-history ring per region; a bounded error
// log; and the event pub/sub bus the scraper loop, scorer, and checkpoint
// simulator publish to.
//
// Readers always see a whole per-region snapshot, never a partially
// written one: writes replace the map entry wholesale under the lock
// rather than mutating fields of an existing record in place.
package cache

import (
	"sync"
	"time"

	"github.com/nerve-engine/nerve/internal/domain"
)

const (
	defaultHistoryCapacity = 1440 // 24h at one entry/minute
	defaultMaxErrorLog     = 10
)

// regionSnapshot is one region's current {prices, weather, carbon} triple,
// replaced atomically on every successful partial or full write.
type regionSnapshot struct {
	Prices  []domain.SpotObservation
	Weather domain.WeatherObservation
	Carbon  domain.CarbonObservation
}

// Store is the Cache component. It is NOT a package-level singleton —
// callers construct and thread one Store explicitly, so tests and
// multi-tenant embeddings never share state through a hidden global.
type Store struct {
	mu sync.RWMutex

	regions map[string]regionSnapshot
	history map[string][]domain.PriceHistoryEntry

	historyCapacity int
	maxErrorLog     int

	errorLog    []string
	scrapeCount int64
	lastScrape  time.Time

	subMu       sync.Mutex
	subscribers []subscriber
}

type subscriber struct {
	ch chan domain.Event
}

// New constructs an empty Store. historyCapacity and maxErrorLog fall back
// to the spec defaults (1440, 10) when zero.
func New(historyCapacity, maxErrorLog int) *Store {
	if historyCapacity <= 0 {
		historyCapacity = defaultHistoryCapacity
	}
	if maxErrorLog <= 0 {
		maxErrorLog = defaultMaxErrorLog
	}
	return &Store{
		regions:         make(map[string]regionSnapshot),
		history:         make(map[string][]domain.PriceHistoryEntry),
		historyCapacity: historyCapacity,
		maxErrorLog:     maxErrorLog,
	}
}

// SetPrices atomically replaces a region's spot observations.
func (s *Store) SetPrices(regionID string, prices []domain.SpotObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.regions[regionID]
	snap.Prices = prices
	s.regions[regionID] = snap
}

// SetWeather atomically replaces a region's weather observation.
func (s *Store) SetWeather(regionID string, weather domain.WeatherObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.regions[regionID]
	snap.Weather = weather
	s.regions[regionID] = snap
}

// SetCarbon atomically replaces a region's carbon observation.
func (s *Store) SetCarbon(regionID string, carbon domain.CarbonObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.regions[regionID]
	snap.Carbon = carbon
	s.regions[regionID] = snap
}

// Prices returns a region's current spot observations.
func (s *Store) Prices(regionID string) []domain.SpotObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions[regionID].Prices
}

// Weather returns a region's current weather observation.
func (s *Store) Weather(regionID string) domain.WeatherObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions[regionID].Weather
}

// Carbon returns a region's current carbon observation.
func (s *Store) Carbon(regionID string) domain.CarbonObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions[regionID].Carbon
}

// Snapshot returns the three current per-region observations together, so
// a caller that needs all three sees one consistent point in time.
func (s *Store) Snapshot(regionID string) ([]domain.SpotObservation, domain.WeatherObservation, domain.CarbonObservation) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.regions[regionID]
	return snap.Prices, snap.Weather, snap.Carbon
}

// AppendHistory appends a price-history entry for regionID, evicting the
// oldest entry once historyCapacity is reached (§4.C, §4.D step 6).
func (s *Store) AppendHistory(regionID string, entry domain.PriceHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history[regionID]
	h = append(h, entry)
	if len(h) > s.historyCapacity {
		h = h[len(h)-s.historyCapacity:]
	}
	s.history[regionID] = h
}

// History returns a region's price-history ring, oldest first.
func (s *Store) History(regionID string) []domain.PriceHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PriceHistoryEntry, len(s.history[regionID]))
	copy(out, s.history[regionID])
	return out
}

// RecordError appends an error string to the bounded error log, dropping
// the oldest entry past maxErrorLog (§4.D failure policy).
func (s *Store) RecordError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorLog = append(s.errorLog, msg)
	if len(s.errorLog) > s.maxErrorLog {
		s.errorLog = s.errorLog[len(s.errorLog)-s.maxErrorLog:]
	}
}

// Errors returns the bounded error log, oldest first.
func (s *Store) Errors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.errorLog))
	copy(out, s.errorLog)
	return out
}

// MarkScraped increments the scrape counter and sets the last-scrape
// timestamp (§4.D step 8).
func (s *Store) MarkScraped(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrapeCount++
	s.lastScrape = at
}

// ScrapeCount and LastScrape report the scrape loop's progress, used by
// dashboard_stats.
func (s *Store) ScrapeCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrapeCount
}

func (s *Store) LastScrape() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScrape
}

// Subscribe registers a new event listener and returns a channel of
// events and an unsubscribe function. The channel is buffered; a
// subscriber that falls behind is dropped on a later Publish rather than
// blocking the publisher (§5 backpressure policy).
func (s *Store) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := subscriber{ch: make(chan domain.Event, buffer)}

	s.subMu.Lock()
	s.subscribers = append(s.subscribers, sub)
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, existing := range s.subscribers {
			if existing.ch == sub.ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(sub.ch)
				return
			}
		}
	}

	return sub.ch, unsubscribe
}

// Publish fans an event out to every live subscriber. Subscribers whose
// buffer is full are dropped on this call (dead-subscriber sweep, §5).
func (s *Store) Publish(event domain.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	live := s.subscribers[:0]
	for _, sub := range s.subscribers {
		select {
		case sub.ch <- event:
			live = append(live, sub)
		default:
			close(sub.ch)
		}
	}
	s.subscribers = live
}
