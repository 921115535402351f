package web

import (
	"net/http"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToRate(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d denied, want allowed (rate=3)", i)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("4th request allowed, want denied past the rate limit")
	}
}

func TestRateLimiterTracksPerIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("1.1.1.1") {
		t.Error("first request from 1.1.1.1 denied")
	}
	if !rl.Allow("2.2.2.2") {
		t.Error("first request from 2.2.2.2 denied, want independent bucket")
	}
	if rl.Allow("1.1.1.1") {
		t.Error("second request from 1.1.1.1 allowed, want denied")
	}
}

func TestGetClientIPPrefersXForwardedFor(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	req.RemoteAddr = "192.168.1.1:12345"

	if got := getClientIP(req); got != "10.0.0.1" {
		t.Errorf("getClientIP() = %q, want 10.0.0.1", got)
	}
}

func TestGetClientIPFallsBackToRemoteAddr(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	if got := getClientIP(req); got != "192.168.1.1" {
		t.Errorf("getClientIP() = %q, want 192.168.1.1", got)
	}
}
