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

// openMeteoForecastAPI is the public Open-Meteo forecast endpoint.
const openMeteoForecastAPI = "https://api.open-meteo.com/v1/forecast"

type openMeteoResponse struct {
	Hourly struct {
		Time            []string  `json:"time"`
		Temperature2m   []float64 `json:"temperature_2m"`
		Windspeed10m    []float64 `json:"windspeed_10m"`
		DirectRadiation []float64 `json:"direct_radiation"`
	} `json:"hourly"`
}

// OpenMeteoFetcher implements domain.WeatherFetcher against the Open-Meteo
// forecast API (§4.B), consumed by the carbon model and the scorer's
// cooling-efficiency component.
type OpenMeteoFetcher struct {
	httpClient *http.Client
}

// NewOpenMeteoFetcher constructs an OpenMeteoFetcher.
func NewOpenMeteoFetcher() *OpenMeteoFetcher {
	return &OpenMeteoFetcher{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies this fetcher in logs and the cache's bounded error log.
func (f *OpenMeteoFetcher) Name() string { return "weather" }

// FetchWeather fetches the current day's hourly forecast for region and
// picks out the current-hour reading (§4.B). On failure it returns a
// conservative default together with a *domain.FetchError, so the scraper
// can store the default and still log the failure (§7 error kind 1).
func (f *OpenMeteoFetcher) FetchWeather(ctx context.Context, region domain.Region) (domain.WeatherObservation, error) {
	url := fmt.Sprintf(
		"%s?latitude=%f&longitude=%f&hourly=temperature_2m,windspeed_10m,direct_radiation&timezone=%s&forecast_days=1",
		openMeteoForecastAPI, region.Lat, region.Lon, region.Timezone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return defaultWeather(region.ID), domain.NewFetchError("weather", region.ID, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		logging.Warn("weather fetch failed region=%s: %v", region.ID, err)
		return defaultWeather(region.ID), domain.NewFetchError("weather", region.ID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		logging.Warn("weather fetch failed region=%s status=%d", region.ID, resp.StatusCode)
		return defaultWeather(region.ID), domain.NewFetchError("weather", region.ID, fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed openMeteoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return defaultWeather(region.ID), domain.NewFetchError("weather", region.ID, err)
	}

	temps := parsed.Hourly.Temperature2m
	winds := parsed.Hourly.Windspeed10m
	solar := parsed.Hourly.DirectRadiation
	hours := parsed.Hourly.Time

	nowHour := time.Now().UTC().Hour()
	currentTemp := pickHour(temps, nowHour, 10.0)
	currentWind := pickHour(winds, nowHour, 15.0)
	currentSolar := pickHour(solar, nowHour, 0.0)

	limit := 24
	if len(temps) < limit {
		limit = len(temps)
	}
	hourly := make([]domain.HourlyWeather, limit)
	for i := 0; i < limit; i++ {
		label := fmt.Sprintf("%02d:00", i)
		if i < len(hours) {
			label = hours[i]
		}
		hourly[i] = domain.HourlyWeather{
			Hour:     label,
			TempC:    valueAt(temps, i, 10.0),
			WindKmh:  valueAt(winds, i, 15.0),
			SolarWm2: valueAt(solar, i, 0.0),
		}
	}

	return domain.WeatherObservation{
		Region:          region.ID,
		CurrentTempC:    currentTemp,
		CurrentWindKmh:  currentWind,
		CurrentSolarWm2: currentSolar,
		Hourly:          hourly,
		ScrapedAt:       time.Now().UTC(),
	}, nil
}

func defaultWeather(regionID string) domain.WeatherObservation {
	return domain.WeatherObservation{
		Region:          regionID,
		CurrentTempC:    10.0,
		CurrentWindKmh:  15.0,
		CurrentSolarWm2: 0.0,
		ScrapedAt:       time.Now().UTC(),
	}
}

func pickHour(series []float64, hour int, fallback float64) float64 {
	if hour < len(series) {
		return series[hour]
	}
	if len(series) > 0 {
		return series[0]
	}
	return fallback
}

func valueAt(series []float64, i int, fallback float64) float64 {
	if i < len(series) {
		return series[i]
	}
	return fallback
}

func init() {
	RegisterWeatherFetcher("open-meteo", func() (domain.WeatherFetcher, error) {
		return NewOpenMeteoFetcher(), nil
	})
}
