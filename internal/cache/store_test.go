package cache

import (
	"testing"
	"time"

	"github.com/nerve-engine/nerve/internal/domain"
)

func TestSetAndGetPrices(t *testing.T) {
	s := New(0, 0)
	obs := []domain.SpotObservation{{SKU: "NC6s_v3", SpotPriceUSDHr: 1.2}}

	s.SetPrices("francecentral", obs)

	got := s.Prices("francecentral")
	if len(got) != 1 || got[0].SKU != "NC6s_v3" {
		t.Errorf("Prices() = %+v, want %+v", got, obs)
	}

	if got := s.Prices("unknown-region"); got != nil {
		t.Errorf("Prices(unknown) = %+v, want nil", got)
	}
}

func TestSnapshotReturnsAllThreeTogether(t *testing.T) {
	s := New(0, 0)
	s.SetPrices("francecentral", []domain.SpotObservation{{SKU: "NC6s_v3"}})
	s.SetWeather("francecentral", domain.WeatherObservation{Region: "francecentral", CurrentTempC: 18})
	s.SetCarbon("francecentral", domain.CarbonObservation{Region: "francecentral", GCO2KWh: 90})

	prices, weather, carbon := s.Snapshot("francecentral")
	if len(prices) != 1 {
		t.Errorf("prices len = %d, want 1", len(prices))
	}
	if weather.CurrentTempC != 18 {
		t.Errorf("weather.CurrentTempC = %v, want 18", weather.CurrentTempC)
	}
	if carbon.GCO2KWh != 90 {
		t.Errorf("carbon.GCO2KWh = %v, want 90", carbon.GCO2KWh)
	}
}

func TestAppendHistoryEvictsOldestPastCapacity(t *testing.T) {
	s := New(3, 0)
	for i := 0; i < 5; i++ {
		s.AppendHistory("francecentral", domain.PriceHistoryEntry{HourUTC: i})
	}

	got := s.History("francecentral")
	if len(got) != 3 {
		t.Fatalf("len(History()) = %d, want 3", len(got))
	}
	// The oldest two (hours 0, 1) should have been evicted.
	if got[0].HourUTC != 2 || got[2].HourUTC != 4 {
		t.Errorf("History() = %+v, want hours [2,3,4]", got)
	}
}

func TestRecordErrorBoundsTheLog(t *testing.T) {
	s := New(0, 2)
	s.RecordError("first")
	s.RecordError("second")
	s.RecordError("third")

	got := s.Errors()
	if len(got) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(got))
	}
	if got[0] != "second" || got[1] != "third" {
		t.Errorf("Errors() = %v, want [second third]", got)
	}
}

func TestMarkScraped(t *testing.T) {
	s := New(0, 0)
	now := time.Now().UTC()
	s.MarkScraped(now)
	s.MarkScraped(now.Add(time.Minute))

	if s.ScrapeCount() != 2 {
		t.Errorf("ScrapeCount() = %d, want 2", s.ScrapeCount())
	}
	if !s.LastScrape().Equal(now.Add(time.Minute)) {
		t.Errorf("LastScrape() = %v, want %v", s.LastScrape(), now.Add(time.Minute))
	}
}

func TestPublishSubscribeDelivers(t *testing.T) {
	s := New(0, 0)
	ch, unsubscribe := s.Subscribe(4)
	defer unsubscribe()

	s.Publish(domain.Event{Type: domain.EventAZPriceUpdate})

	select {
	case ev := <-ch:
		if ev.Type != domain.EventAZPriceUpdate {
			t.Errorf("event type = %v, want %v", ev.Type, domain.EventAZPriceUpdate)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestPublishDropsSlowSubscriberInsteadOfBlocking(t *testing.T) {
	s := New(0, 0)
	ch, unsubscribe := s.Subscribe(1)
	defer unsubscribe()

	// Fill the buffer, then publish once more: the subscriber should be
	// dropped (channel closed) rather than the publisher blocking.
	s.Publish(domain.Event{Type: domain.EventAZPriceUpdate})
	s.Publish(domain.Event{Type: domain.EventCheckpoint})

	<-ch // drains the first buffered event

	_, open := <-ch
	if open {
		t.Error("expected subscriber channel to be closed after falling behind")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := New(0, 0)
	ch, unsubscribe := s.Subscribe(1)
	unsubscribe()

	_, open := <-ch
	if open {
		t.Error("expected channel to be closed after unsubscribe")
	}
}
