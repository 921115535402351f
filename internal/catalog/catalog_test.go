package catalog

import (
	"testing"

	"github.com/nerve-engine/nerve/internal/domain"
)

func TestRegionByID(t *testing.T) {
	region, ok := RegionByID("francecentral")
	if !ok {
		t.Fatal("expected francecentral to be found")
	}
	if region.Name != "France Central" {
		t.Errorf("Name = %q, want France Central", region.Name)
	}

	if _, ok := RegionByID("nowhere"); ok {
		t.Error("expected unknown region to return ok=false")
	}
}

func TestRegionIDsMatchesRegions(t *testing.T) {
	ids := RegionIDs()
	if len(ids) != len(Regions) {
		t.Fatalf("len(RegionIDs()) = %d, want %d", len(ids), len(Regions))
	}
	for i, r := range Regions {
		if ids[i] != r.ID {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], r.ID)
		}
	}
}

func TestNeighborAZ(t *testing.T) {
	tests := []struct {
		azID string
		want string
	}{
		{"fr-central-1", "fr-central-2"},
		{"fr-central-3", "fr-central-1"},
		{"we-2", "we-3"},
		{"unknown-az", "fr-central-2"},
	}
	for _, tt := range tests {
		t.Run(tt.azID, func(t *testing.T) {
			if got := NeighborAZ(tt.azID); got != tt.want {
				t.Errorf("NeighborAZ(%q) = %q, want %q", tt.azID, got, tt.want)
			}
		})
	}
}

func TestLookupLongestMatch(t *testing.T) {
	tests := []struct {
		sku        string
		wantFamily string
		wantTier   domain.Tier
		wantFound  bool
	}{
		{"Standard_NC6s_v3", "v100", domain.TierHigh, true},
		{"Standard_NC96ads_A100_v4", "a100", domain.TierPremium, true},
		{"standard_nc4as_t4_v3", "t4", domain.TierMid, true},
		{"Standard_D2s_v3", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			entry, ok := Lookup(tt.sku)
			if ok != tt.wantFound {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.sku, ok, tt.wantFound)
			}
			if !ok {
				return
			}
			if entry.Family != tt.wantFamily {
				t.Errorf("Family = %q, want %q", entry.Family, tt.wantFamily)
			}
			if entry.Tier != tt.wantTier {
				t.Errorf("Tier = %q, want %q", entry.Tier, tt.wantTier)
			}
			if entry.KWhPerHour <= 0 {
				t.Errorf("KWhPerHour = %v, want > 0", entry.KWhPerHour)
			}
		})
	}
}

func TestLookupPrefersLongestKey(t *testing.T) {
	// The full Azure SKU name must resolve to the nc48ads_a100_v4 entry
	// rather than to another A100 entry such as nc96ads_a100_v4.
	entry, ok := Lookup("standard_nc48ads_a100_v4")
	if !ok {
		t.Fatal("expected match")
	}
	if entry.VCPUs != 48 {
		t.Errorf("VCPUs = %d, want 48 (the nc48ads_a100_v4 entry, not a shorter partial match)", entry.VCPUs)
	}
}

func TestKWhPerFamily(t *testing.T) {
	if got := KWhPerFamily("h100"); got != 0.70 {
		t.Errorf("KWhPerFamily(h100) = %v, want 0.70", got)
	}
	if got := KWhPerFamily("unknown-family"); got != 0.30 {
		t.Errorf("KWhPerFamily(unknown) = %v, want fallback 0.30", got)
	}
}
