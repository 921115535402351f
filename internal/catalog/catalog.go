// Package catalog holds the static, read-only-after-init tables the rest
// of the engine is built on: the configured regions and their AZs, the
// GPU SKU lookup table, and each region's grid-mix used by the carbon
// model. Nothing here changes after process startup.
package catalog

import (
	"strings"

	"github.com/nerve-engine/nerve/internal/domain"
)

// Regions is the ordered list of configured regions, grounded on the
// REGIONS table of the NERVE scraper.
var Regions = []domain.Region{
	{
		ID:       "francecentral",
		Name:     "France Central",
		Location: "Paris, France",
		Lat:      48.8566,
		Lon:      2.3522,
		Timezone: "Europe/Paris",
		AZs: []domain.AZDescriptor{
			{ID: "fr-central-1", Name: "France Central AZ-1", NeighborID: "fr-central-2"},
			{ID: "fr-central-2", Name: "France Central AZ-2", NeighborID: "fr-central-3"},
			{ID: "fr-central-3", Name: "France Central AZ-3", NeighborID: "fr-central-1"},
		},
	},
	{
		ID:       "westeurope",
		Name:     "West Europe",
		Location: "Amsterdam, Netherlands",
		Lat:      52.3676,
		Lon:      4.9041,
		Timezone: "Europe/Amsterdam",
		AZs: []domain.AZDescriptor{
			{ID: "we-1", Name: "West Europe AZ-1", NeighborID: "we-2"},
			{ID: "we-2", Name: "West Europe AZ-2", NeighborID: "we-3"},
			{ID: "we-3", Name: "West Europe AZ-3", NeighborID: "we-1"},
		},
	},
	{
		ID:       "uksouth",
		Name:     "UK South",
		Location: "London, UK",
		Lat:      51.5074,
		Lon:      -0.1278,
		Timezone: "Europe/London",
		AZs: []domain.AZDescriptor{
			{ID: "uk-south-1", Name: "UK South AZ-1", NeighborID: "uk-south-2"},
			{ID: "uk-south-2", Name: "UK South AZ-2", NeighborID: "uk-south-3"},
			{ID: "uk-south-3", Name: "UK South AZ-3", NeighborID: "uk-south-1"},
		},
	},
}

// DefaultRegionID is substituted whenever a request names an unconfigured
// region (§7, error kind 5).
const DefaultRegionID = "francecentral"

// RegionByID looks up a configured region. ok is false for unknown ids.
func RegionByID(id string) (domain.Region, bool) {
	for _, r := range Regions {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Region{}, false
}

// RegionIDs returns the configured region identifiers in stable order.
func RegionIDs() []string {
	ids := make([]string, len(Regions))
	for i, r := range Regions {
		ids[i] = r.ID
	}
	return ids
}

// NeighborAZ returns the neighbor AZ id for migration fallback (§4.I),
// falling back to "fr-central-2" (francecentral's second AZ) if az is
// unknown.
func NeighborAZ(azID string) string {
	for _, r := range Regions {
		for _, az := range r.AZs {
			if az.ID == azID {
				return az.NeighborID
			}
		}
	}
	return "fr-central-2"
}

// GPUSKUPrefixes are the Azure SKU-family contains-predicates the Azure
// fetcher filters on (§4.B).
var GPUSKUPrefixes = []string{"NC", "NV", "ND"}

// catalogEntry pairs a lower-cased SKU substring key with its spec. Keys
// are matched by substring containment against the lower-cased SKU name;
// GPUCatalogLookup returns the longest matching key's entry.
type catalogEntry struct {
	key   string
	entry domain.GPUCatalogEntry
}

// kwhPerFamily is the energy draw per GPU-hour used by the Green Impact
// calculation (§4.G) and the catalog entries below, keyed by GPU family.
var kwhPerFamily = map[string]float64{
	"v100": 0.30,
	"t4":   0.07,
	"a10":  0.15,
	"a100": 0.40,
	"h100": 0.70,
	"mi25": 0.10,
	"m60":  0.12,
}

// gpuCatalog is the SKU substring lookup table. Grounded on the NERVE
// scraper's GPU identification table: one entry per Azure NC/NV/ND SKU
// the engine recognizes.
var gpuCatalog = []catalogEntry{
	{"nc6s_v3", domain.GPUCatalogEntry{Family: "v100", Name: "Tesla V100 (16GB)", GPUCount: 1, VCPUs: 6, RAMGB: 112, Tier: domain.TierHigh}},
	{"nc12s_v3", domain.GPUCatalogEntry{Family: "v100", Name: "Tesla V100 (16GB)", GPUCount: 2, VCPUs: 12, RAMGB: 224, Tier: domain.TierHigh}},
	{"nc24s_v3", domain.GPUCatalogEntry{Family: "v100", Name: "Tesla V100 (16GB)", GPUCount: 4, VCPUs: 24, RAMGB: 448, Tier: domain.TierHigh}},
	{"nc24rs_v3", domain.GPUCatalogEntry{Family: "v100", Name: "Tesla V100 (16GB)", GPUCount: 4, VCPUs: 24, RAMGB: 448, Tier: domain.TierHigh}},
	{"nc4as_t4_v3", domain.GPUCatalogEntry{Family: "t4", Name: "Tesla T4 (16GB)", GPUCount: 1, VCPUs: 4, RAMGB: 28, Tier: domain.TierMid}},
	{"nc8as_t4_v3", domain.GPUCatalogEntry{Family: "t4", Name: "Tesla T4 (16GB)", GPUCount: 1, VCPUs: 8, RAMGB: 56, Tier: domain.TierMid}},
	{"nc16as_t4_v3", domain.GPUCatalogEntry{Family: "t4", Name: "Tesla T4 (16GB)", GPUCount: 1, VCPUs: 16, RAMGB: 110, Tier: domain.TierMid}},
	{"nc64as_t4_v3", domain.GPUCatalogEntry{Family: "t4", Name: "Tesla T4 (16GB)", GPUCount: 4, VCPUs: 64, RAMGB: 440, Tier: domain.TierMid}},
	{"nc8ads_a10_v4", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (24GB)", GPUCount: 1, VCPUs: 8, RAMGB: 55, Tier: domain.TierMid}},
	{"nc16ads_a10_v4", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (24GB)", GPUCount: 1, VCPUs: 16, RAMGB: 110, Tier: domain.TierMid}},
	{"nc32ads_a10_v4", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (24GB)", GPUCount: 2, VCPUs: 32, RAMGB: 220, Tier: domain.TierMid}},
	{"nc48ads_a100_v4", domain.GPUCatalogEntry{Family: "a100", Name: "A100 (80GB)", GPUCount: 2, VCPUs: 48, RAMGB: 440, Tier: domain.TierPremium}},
	{"nc96ads_a100_v4", domain.GPUCatalogEntry{Family: "a100", Name: "A100 (80GB)", GPUCount: 4, VCPUs: 96, RAMGB: 880, Tier: domain.TierPremium}},
	{"ncc40ads_h100_v5", domain.GPUCatalogEntry{Family: "h100", Name: "H100 (80GB)", GPUCount: 1, VCPUs: 40, RAMGB: 320, Tier: domain.TierPremium}},
	{"nc80adis_h100_v5", domain.GPUCatalogEntry{Family: "h100", Name: "H100 (80GB)", GPUCount: 2, VCPUs: 80, RAMGB: 640, Tier: domain.TierPremium}},
	{"nv6ads_a10_v5", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (6GB slice)", GPUCount: 1, VCPUs: 6, RAMGB: 55, Tier: domain.TierLow}},
	{"nv12ads_a10_v5", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (12GB slice)", GPUCount: 1, VCPUs: 12, RAMGB: 110, Tier: domain.TierLow}},
	{"nv18ads_a10_v5", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (18GB slice)", GPUCount: 1, VCPUs: 18, RAMGB: 220, Tier: domain.TierMid}},
	{"nv36ads_a10_v5", domain.GPUCatalogEntry{Family: "a10", Name: "A10 (24GB)", GPUCount: 1, VCPUs: 36, RAMGB: 440, Tier: domain.TierMid}},
	{"nv4as_v4", domain.GPUCatalogEntry{Family: "mi25", Name: "Radeon MI25 (4GB)", GPUCount: 1, VCPUs: 4, RAMGB: 14, Tier: domain.TierLow}},
	{"nv8as_v4", domain.GPUCatalogEntry{Family: "mi25", Name: "Radeon MI25 (8GB)", GPUCount: 1, VCPUs: 8, RAMGB: 28, Tier: domain.TierLow}},
	{"nv16as_v4", domain.GPUCatalogEntry{Family: "mi25", Name: "Radeon MI25 (16GB)", GPUCount: 1, VCPUs: 16, RAMGB: 56, Tier: domain.TierLow}},
	{"nv32as_v4", domain.GPUCatalogEntry{Family: "mi25", Name: "Radeon MI25 (32GB)", GPUCount: 1, VCPUs: 32, RAMGB: 112, Tier: domain.TierLow}},
	{"nv12s_v3", domain.GPUCatalogEntry{Family: "m60", Name: "Tesla M60 (8GB)", GPUCount: 1, VCPUs: 12, RAMGB: 112, Tier: domain.TierLow}},
	{"nv24s_v3", domain.GPUCatalogEntry{Family: "m60", Name: "Tesla M60 (16GB)", GPUCount: 2, VCPUs: 24, RAMGB: 224, Tier: domain.TierLow}},
	{"nv48s_v3", domain.GPUCatalogEntry{Family: "m60", Name: "Tesla M60 (32GB)", GPUCount: 4, VCPUs: 48, RAMGB: 448, Tier: domain.TierLow}},
}

func init() {
	for i := range gpuCatalog {
		gpuCatalog[i].entry.KWhPerHour = kwhPerFamily[gpuCatalog[i].entry.Family]
	}
}

// Lookup resolves an Azure SKU name to its catalog entry via longest-prefix
// (longest matching substring key) match, case-insensitively. ok is false
// for unrecognized SKUs (§7, error kind 3: drop the row silently).
func Lookup(sku string) (domain.GPUCatalogEntry, bool) {
	lower := strings.ToLower(sku)
	bestLen := -1
	var best domain.GPUCatalogEntry
	for _, c := range gpuCatalog {
		if strings.Contains(lower, c.key) && len(c.key) > bestLen {
			bestLen = len(c.key)
			best = c.entry
		}
	}
	return best, bestLen >= 0
}

// KWhPerFamily returns the energy draw per GPU-hour for a family, defaulting
// to the v100 figure when the family is unknown (matches the legacy
// scoring module's KWH_PER_GPU_HR.get(fam, 0.30) fallback).
func KWhPerFamily(family string) float64 {
	if v, ok := kwhPerFamily[family]; ok {
		return v
	}
	return 0.30
}
