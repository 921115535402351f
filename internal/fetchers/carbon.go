package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
)

// ukCarbonIntensityAPI is the public UK grid carbon intensity endpoint.
const ukCarbonIntensityAPI = "https://api.carbonintensity.org.uk/intensity"

// ukCarbonRegionID is the only configured region with a live carbon API;
// all other regions fall back to the physics model of §4.E.
const ukCarbonRegionID = "uksouth"

type ukIntensityResponse struct {
	Data []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		Intensity struct {
			Forecast float64 `json:"forecast"`
			Actual   float64 `json:"actual"`
			Index    string  `json:"index"`
		} `json:"intensity"`
	} `json:"data"`
}

// UKCarbonFetcher implements domain.CarbonFetcher against the UK Carbon
// Intensity API (§4.B). Only uksouth resolves through this fetcher; the
// caller falls back to the physics model for any other region or when
// the API call fails.
type UKCarbonFetcher struct {
	httpClient *http.Client
}

// NewUKCarbonFetcher constructs a UKCarbonFetcher.
func NewUKCarbonFetcher() *UKCarbonFetcher {
	return &UKCarbonFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies this fetcher in logs and the cache's bounded error log.
func (f *UKCarbonFetcher) Name() string { return "carbon" }

// FetchCarbon returns ok=false for any region other than uksouth, or when
// the live API call fails — in both cases the caller falls back to the
// physics model of §4.E rather than treating this as a hard error.
func (f *UKCarbonFetcher) FetchCarbon(ctx context.Context, region domain.Region) (domain.CarbonObservation, bool, error) {
	if region.ID != ukCarbonRegionID {
		return domain.CarbonObservation{}, false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ukCarbonIntensityAPI, nil)
	if err != nil {
		return domain.CarbonObservation{}, false, domain.NewFetchError("carbon", region.ID, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		logging.Warn("carbon fetch failed region=%s: %v", region.ID, err)
		return domain.CarbonObservation{}, false, domain.NewFetchError("carbon", region.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		return domain.CarbonObservation{}, false, domain.NewFetchError("carbon", region.ID, fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed ukIntensityResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Data) == 0 {
		return domain.CarbonObservation{}, false, domain.NewFetchError("carbon", region.ID, fmt.Errorf("malformed response"))
	}

	entry := parsed.Data[0]
	actual := entry.Intensity.Actual
	if actual <= 0 {
		actual = entry.Intensity.Forecast
	}
	if actual <= 0 {
		actual = 120
	}

	index := domain.CarbonIndex(entry.Intensity.Index)
	if index == "" {
		index = domain.LowCarbon
	}

	return domain.CarbonObservation{
		Region:    region.ID,
		GCO2KWh:   actual,
		Index:     index,
		Source:    "carbonintensity.org.uk (live)",
		ScrapedAt: time.Now().UTC(),
	}, true, nil
}

func init() {
	RegisterCarbonFetcher("uk-carbon-intensity", func() (domain.CarbonFetcher, error) {
		return NewUKCarbonFetcher(), nil
	})
}
