package fetchers

import (
	"testing"
	"time"
)

func TestTTLCacheGetMiss(t *testing.T) {
	c := newTTLCache()
	if _, _, ok := c.get("missing"); ok {
		t.Error("get() on empty cache returned ok=true")
	}
}

func TestTTLCacheSetThenGet(t *testing.T) {
	c := newTTLCache()
	items := []retailPriceItem{{RetailPrice: 1.5, ArmSkuName: "Standard_NC6s_v3"}}

	c.set("key-1", items, "next-page-url", time.Minute)

	got, next, ok := c.get("key-1")
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].ArmSkuName != "Standard_NC6s_v3" {
		t.Errorf("get() items = %+v, want %+v", got, items)
	}
	if next != "next-page-url" {
		t.Errorf("nextLink = %q, want next-page-url", next)
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c := newTTLCache()
	c.set("key-1", []retailPriceItem{{RetailPrice: 1.0}}, "", -time.Second)

	if _, _, ok := c.get("key-1"); ok {
		t.Error("get() on an already-expired entry returned ok=true")
	}
}
