// Package azvariation derives per-AZ price and availability variation from
// a single region-level observation (§4.F). Both operations are
// deterministic MD5 hashes of UTF-8 keys and MUST stay byte-identical
// across reimplementations so fixtures reproduce across ports — this is
// the one place in the engine where MD5 is load-bearing, used purely for
// distribution, not security.
package azvariation

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/nerve-engine/nerve/internal/domain"
)

// PriceJitter returns basePrice adjusted by a deterministic multiplicative
// factor within ±5% (the hash maps to [-1, 1], scaled by 0.05), keyed on
// (azID, sku, hourUTC). Key format and hex parsing must match exactly:
// MD5("<azID>:<sku>:<hourUTC>"), first 8 hex chars as a big-endian u32.
func PriceJitter(basePrice float64, azID, sku string, hourUTC int) float64 {
	key := fmt.Sprintf("%s:%s:%d", azID, sku, hourUTC)
	sum := md5.Sum([]byte(key))
	hexStr := hex.EncodeToString(sum[:])

	var v uint32
	fmt.Sscanf(hexStr[:8], "%x", &v)

	norm := (float64(v)/float64(0xFFFFFFFF))*2 - 1 // [-1, 1]
	variationPct := norm * 0.05
	return round6(basePrice * (1 + variationPct))
}

// AvailabilityShift downgrades base by one tier for roughly 30% of AZs,
// keyed on azID alone. Key format: MD5("<azID>:load"), first 4 hex chars
// mod 10; values 0-2 (30%) trigger the downgrade.
func AvailabilityShift(base domain.Availability, azID string) domain.Availability {
	key := fmt.Sprintf("%s:load", azID)
	sum := md5.Sum([]byte(key))
	hexStr := hex.EncodeToString(sum[:])

	var v uint32
	fmt.Sscanf(hexStr[:4], "%x", &v)
	loadVal := v % 10

	if loadVal < 3 {
		return base.Downgrade()
	}
	return base
}

// FromRatio buckets a spot/on-demand ratio into an availability tier
// (§4.F). ondemand must be > 0; callers with an unknown on-demand price
// should use FromTier instead.
func FromRatio(spot, ondemand float64) domain.Availability {
	ratio := spot / ondemand
	switch {
	case ratio > 0.70:
		return domain.Low
	case ratio > 0.45:
		return domain.Medium
	default:
		return domain.High
	}
}

// FromTier is the fallback used when the on-demand price is unknown
// (§4.F): premium->low, high->(medium if price>2.0 else high), mid->high,
// low->high.
func FromTier(tier domain.Tier, price float64) domain.Availability {
	switch tier {
	case domain.TierPremium:
		return domain.Low
	case domain.TierHigh:
		if price > 2.0 {
			return domain.Medium
		}
		return domain.High
	default:
		return domain.High
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
