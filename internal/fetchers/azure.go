package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerve-engine/nerve/internal/azvariation"
	"github.com/nerve-engine/nerve/internal/catalog"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
)

// azureRetailPricesAPI is the public Azure Retail Prices endpoint used by
// the price fetcher (§4.B).
const azureRetailPricesAPI = "https://prices.azure.com/api/retail/prices"

// retailPricesResponse is the Azure Retail Prices API response envelope.
type retailPricesResponse struct {
	Items        []retailPriceItem `json:"Items"`
	NextPageLink string            `json:"NextPageLink"`
}

type retailPriceItem struct {
	RetailPrice   float64 `json:"retailPrice"`
	ArmRegionName string  `json:"armRegionName"`
	MeterName     string  `json:"meterName"`
	ArmSkuName    string  `json:"armSkuName"`
}

// AzureSpotFetcher implements domain.PriceFetcher against the Azure Retail
// Prices API (§4.B). One FetchSpotObservations call issues one query per
// GPU SKU family prefix, deduplicates to the cheapest variant per SKU,
// then enriches each with an on-demand comparison query.
type AzureSpotFetcher struct {
	httpClient *http.Client
	pageCache  *ttlCache
}

// pageCacheTTL is kept a little under the 60s scrape cadence so a cycle's
// repeated on-demand lookups share one round trip without ever serving a
// page from the previous cycle.
const pageCacheTTL = 45 * time.Second

// NewAzureSpotFetcher constructs an AzureSpotFetcher with a bounded HTTP
// timeout budget for the spot-price queries.
func NewAzureSpotFetcher() *AzureSpotFetcher {
	return &AzureSpotFetcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		pageCache:  newTTLCache(),
	}
}

// Name identifies this fetcher in logs and the cache's bounded error log.
func (f *AzureSpotFetcher) Name() string { return "azure" }

// FetchSpotObservations fetches and normalizes spot GPU observations for
// region. Unrecognized SKUs are dropped silently (§7 error kind 3); a
// family query failure is captured and logged, not raised, so the other
// families still complete (§4.B, §7 error kind 1).
func (f *AzureSpotFetcher) FetchSpotObservations(ctx context.Context, region domain.Region) ([]domain.SpotObservation, error) {
	seen := make(map[string]retailPriceItem)

	for _, prefix := range catalog.GPUSKUPrefixes {
		filter := fmt.Sprintf(
			"serviceName eq 'Virtual Machines' and armRegionName eq '%s' and contains(meterName,'Spot') and contains(armSkuName,'%s')",
			region.ID, prefix)

		items, err := f.fetchAll(ctx, filter)
		if err != nil {
			logging.Warn("azure fetch failed region=%s family=%s: %v", region.ID, prefix, err)
			continue
		}

		for _, item := range items {
			existing, ok := seen[item.ArmSkuName]
			if !ok || item.RetailPrice < existing.RetailPrice {
				seen[item.ArmSkuName] = item
			}
		}
	}

	observations := make([]domain.SpotObservation, 0, len(seen))
	now := time.Now().UTC()
	for sku, item := range seen {
		entry, ok := catalog.Lookup(sku)
		if !ok {
			continue
		}

		onDemand, savingsPct := f.fetchOnDemand(ctx, region.ID, sku, item.RetailPrice)
		avail := f.estimateAvailability(entry.Tier, item.RetailPrice, onDemand)

		observations = append(observations, domain.SpotObservation{
			Region:             region.ID,
			SKU:                sku,
			GPUName:            entry.Name,
			GPUCount:           entry.GPUCount,
			VCPUs:              entry.VCPUs,
			RAMGB:              entry.RAMGB,
			Tier:               entry.Tier,
			SpotPriceUSDHr:     round6(item.RetailPrice),
			OnDemandPriceUSDHr: onDemand,
			SavingsPct:         savingsPct,
			Availability:       avail,
			ScrapedAt:          now,
		})
	}

	return observations, nil
}

// fetchOnDemand enriches a spot price with its on-demand comparison,
// falling back to a 5x/80% estimate when the lookup fails (§4.B).
func (f *AzureSpotFetcher) fetchOnDemand(ctx context.Context, regionID, sku string, spotPrice float64) (float64, float64) {
	filter := fmt.Sprintf("serviceName eq 'Virtual Machines' and armRegionName eq '%s' and armSkuName eq '%s'", regionID, sku)

	items, err := f.fetchAll(ctx, filter)
	if err == nil {
		for _, item := range items {
			if !strings.Contains(item.MeterName, "Spot") && !strings.Contains(item.MeterName, "Low Priority") {
				onDemand := round4(item.RetailPrice)
				if onDemand > 0 {
					savings := round1((1 - spotPrice/onDemand) * 100)
					return onDemand, savings
				}
				return onDemand, 0
			}
		}
	}

	onDemand := round4(spotPrice * 5)
	return onDemand, 80.0
}

// estimateAvailability recomputes the availability tier from the real
// spot/on-demand ratio, falling back to the tier-based heuristic when the
// on-demand price is unusable (§4.F).
func (f *AzureSpotFetcher) estimateAvailability(tier domain.Tier, spotPrice, onDemandPrice float64) domain.Availability {
	if onDemandPrice > 0 {
		return azvariation.FromRatio(spotPrice, onDemandPrice)
	}
	return azvariation.FromTier(tier, spotPrice)
}

// fetchAll walks the Azure Retail Prices pagination, bounded to 5000 items
// to keep one scrape cycle from running away (§4.D cadence constraint).
func (f *AzureSpotFetcher) fetchAll(ctx context.Context, filter string) ([]retailPriceItem, error) {
	var all []retailPriceItem
	next := fmt.Sprintf("%s?$filter=%s", azureRetailPricesAPI, url.QueryEscape(filter))

	for next != "" {
		items, nextLink, err := f.fetchPage(ctx, next)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
		next = nextLink

		if len(all) >= 5000 {
			break
		}
	}

	return all, nil
}

func (f *AzureSpotFetcher) fetchPage(ctx context.Context, pageURL string) ([]retailPriceItem, string, error) {
	if items, nextLink, ok := f.pageCache.get(pageURL); ok {
		return items, nextLink, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("azure API status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	var parsed retailPricesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("parse body: %w", err)
	}
	f.pageCache.set(pageURL, parsed.Items, parsed.NextPageLink, pageCacheTTL)

	return parsed.Items, parsed.NextPageLink, nil
}

func init() {
	RegisterPriceFetcher("azure", func() (domain.PriceFetcher, error) {
		return NewAzureSpotFetcher(), nil
	})
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
