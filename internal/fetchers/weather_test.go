package fetchers

import "testing"

func TestPickHourWithinSeries(t *testing.T) {
	series := []float64{1, 2, 3, 4}
	if got := pickHour(series, 2, 99); got != 3 {
		t.Errorf("pickHour(series, 2, 99) = %v, want 3", got)
	}
}

func TestPickHourPastSeriesFallsBackToFirstEntry(t *testing.T) {
	series := []float64{5, 6}
	if got := pickHour(series, 10, 99); got != 5 {
		t.Errorf("pickHour(series, 10, 99) = %v, want first entry 5", got)
	}
}

func TestPickHourEmptySeriesFallsBackToDefault(t *testing.T) {
	if got := pickHour(nil, 3, 42); got != 42 {
		t.Errorf("pickHour(nil, 3, 42) = %v, want 42", got)
	}
}

func TestValueAtWithinBounds(t *testing.T) {
	series := []float64{10, 20, 30}
	if got := valueAt(series, 1, 0); got != 20 {
		t.Errorf("valueAt(series, 1, 0) = %v, want 20", got)
	}
}

func TestValueAtOutOfBoundsFallsBackToDefault(t *testing.T) {
	series := []float64{10}
	if got := valueAt(series, 5, 7); got != 7 {
		t.Errorf("valueAt(series, 5, 7) = %v, want 7", got)
	}
}

func TestDefaultWeatherUsesConservativeReadings(t *testing.T) {
	w := defaultWeather("francecentral")
	if w.Region != "francecentral" {
		t.Errorf("Region = %q, want francecentral", w.Region)
	}
	if w.CurrentTempC != 10.0 || w.CurrentWindKmh != 15.0 || w.CurrentSolarWm2 != 0.0 {
		t.Errorf("defaultWeather() = %+v, want the conservative 10/15/0 defaults", w)
	}
}

func TestNewOpenMeteoFetcherName(t *testing.T) {
	f := NewOpenMeteoFetcher()
	if f.Name() != "weather" {
		t.Errorf("Name() = %q, want weather", f.Name())
	}
}
