// Package domain contains the core domain models for the NERVE engine.
// These models are transport-agnostic and represent the business entities
// shared by the scraper, scorer, time-shifter, and checkpoint simulator.
package domain

import (
	"encoding/json"
	"time"
)

// Availability is the coarse spot-capacity tier derived from the
// spot/on-demand price ratio.
type Availability string

const (
	High     Availability = "high"
	Medium   Availability = "medium"
	Low      Availability = "low"
	VeryLow  Availability = "very_low"
)

// Score returns the availability component used by the NERVE scorer
// (1.0 = plentiful capacity, 0.1 = scarce).
func (a Availability) Score() float64 {
	switch a {
	case High:
		return 1.0
	case Medium:
		return 0.7
	case Low:
		return 0.4
	case VeryLow:
		return 0.1
	default:
		return 0.5
	}
}

// Downgrade returns the next scarcer tier, used by the per-AZ availability
// shift (§4.F). Low and VeryLow do not downgrade further.
func (a Availability) Downgrade() Availability {
	switch a {
	case High:
		return Medium
	case Medium:
		return Low
	default:
		return a
	}
}

// Tier is the catalog entry's hardware class, used only for the
// on-demand-unknown availability fallback (§4.F).
type Tier string

const (
	TierLow     Tier = "low"
	TierMid     Tier = "mid"
	TierHigh    Tier = "high"
	TierPremium Tier = "premium"
	TierUltra   Tier = "ultra"
)

// CarbonIndex is the categorical banding of a gCO2/kWh reading (§4.E).
type CarbonIndex string

const (
	VeryLowCarbon  CarbonIndex = "very low"
	LowCarbon      CarbonIndex = "low"
	Moderate       CarbonIndex = "moderate"
	HighCarbon     CarbonIndex = "high"
	VeryHighCarbon CarbonIndex = "very high"
)

// BandCarbonIndex buckets a gCO2/kWh value per the §4.E thresholds.
func BandCarbonIndex(gco2kwh float64) CarbonIndex {
	switch {
	case gco2kwh < 80:
		return VeryLowCarbon
	case gco2kwh < 150:
		return LowCarbon
	case gco2kwh < 250:
		return Moderate
	case gco2kwh < 400:
		return HighCarbon
	default:
		return VeryHighCarbon
	}
}

// StartStrategy is the simulator's recommended job-start timing.
type StartStrategy string

const (
	Immediate   StartStrategy = "immediate"
	TimeShifted StartStrategy = "time_shifted"
)

// InterruptionRisk is the coarse eviction-likelihood label in a decision's
// risk assessment.
type InterruptionRisk string

const (
	RiskLow    InterruptionRisk = "low"
	RiskMedium InterruptionRisk = "medium"
)

// EventType enumerates the envelope "type" field of the event bus (§6).
type EventType string

const (
	EventAZPriceUpdate      EventType = "az_price_update"
	EventCheckpoint         EventType = "checkpoint_event"
	EventMigrationComplete  EventType = "migration_complete"
	EventTimeShiftScheduled EventType = "timeshift_scheduled"
	EventSpotInterruption   EventType = "spot_interruption"
)

// Event is the envelope every subscriber receives from subscribe_events().
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Fields alongside type/timestamp so the wire shape
// matches spec §6: `{type, timestamp, ...type-specific fields}`.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(e.Fields)+2)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp
	return json.Marshal(out)
}

// AZDescriptor is a static, read-only availability-zone record.
type AZDescriptor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NeighborID string `json:"neighbor_id"`
}

// Region is a static, read-only region record.
type Region struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Location string         `json:"location"`
	Lat      float64        `json:"lat"`
	Lon      float64        `json:"lon"`
	Timezone string         `json:"timezone"`
	AZs      []AZDescriptor `json:"azs"`
}

// GPUCatalogEntry is a static GPU SKU→spec record, looked up by
// longest-prefix match of the Azure SKU name (§3).
type GPUCatalogEntry struct {
	Family     string  `json:"family"`
	Name       string  `json:"name"`
	GPUCount   int     `json:"gpu_count"`
	VCPUs      int     `json:"vcpus"`
	RAMGB      float64 `json:"ram_gb"`
	Tier       Tier    `json:"tier"`
	KWhPerHour float64 `json:"kwh_per_hour"`
}

// SpotObservation is a per-(region, SKU) price reading. Created fresh on
// every successful scrape; the previous value is discarded, never mutated.
type SpotObservation struct {
	Region            string       `json:"region"`
	SKU               string       `json:"sku"`
	GPUName           string       `json:"gpu_name"`
	GPUCount          int          `json:"gpu_count"`
	VCPUs             int          `json:"vcpus"`
	RAMGB             float64      `json:"ram_gb"`
	Tier              Tier         `json:"tier"`
	SpotPriceUSDHr    float64      `json:"spot_price_usd_hr"`
	OnDemandPriceUSDHr float64     `json:"ondemand_price_usd_hr"`
	SavingsPct        float64      `json:"savings_pct"`
	Availability      Availability `json:"availability"`
	ScrapedAt         time.Time    `json:"scraped_at"`
}

// AZProjectedObservation is a SpotObservation as seen from one AZ: the
// deterministic jitter and availability shift of §4.F have been applied,
// and the region's current carbon/weather are carried along.
type AZProjectedObservation struct {
	SpotObservation
	AZID             string  `json:"az_id"`
	TemperatureC     float64 `json:"temperature_c"`
	WindKmh          float64 `json:"wind_kmh"`
	CarbonGCO2KWh    float64 `json:"carbon_gco2_kwh"`
}

// HourlyWeather is one forecast row of WeatherObservation.
type HourlyWeather struct {
	Hour     string  `json:"hour"`
	TempC    float64 `json:"temp_c"`
	WindKmh  float64 `json:"wind_kmh"`
	SolarWm2 float64 `json:"solar_wm2"`
}

// WeatherObservation is a per-region weather snapshot, last-writer-wins.
type WeatherObservation struct {
	Region          string          `json:"region"`
	CurrentTempC    float64         `json:"current_temp_c"`
	CurrentWindKmh  float64         `json:"current_wind_kmh"`
	CurrentSolarWm2 float64         `json:"current_solar_wm2"`
	Hourly          []HourlyWeather `json:"hourly"`
	ScrapedAt       time.Time       `json:"scraped_at"`
}

// CarbonObservation is a per-region grid-carbon reading, either from the
// UK live API or synthesized by the §4.E model.
type CarbonObservation struct {
	Region    string      `json:"region"`
	GCO2KWh   float64     `json:"gco2_kwh"`
	Index     CarbonIndex `json:"index"`
	Source    string      `json:"source"`
	ScrapedAt time.Time   `json:"scraped_at"`
}

// PriceHistoryEntry is one ring-buffer slot of a region's scrape history.
type PriceHistoryEntry struct {
	Timestamp       time.Time `json:"timestamp"`
	HourUTC         int       `json:"hour_utc"`
	AvgSpot         float64   `json:"avg_spot_usd_hr"`
	MinSpot         float64   `json:"min_spot_usd_hr"`
	MaxSpot         float64   `json:"max_spot_usd_hr"`
	AvgComputeFamily float64  `json:"avg_compute_family_usd_hr"`
	Count           int       `json:"count"`
}

// Stats is the set of monotonically increasing counters persisted by the
// stats store (§4.J / §3).
type Stats struct {
	TotalJobs           int64   `json:"total_jobs"`
	TotalSavingsUSD      float64 `json:"total_savings_usd"`
	TotalCO2SavedGrams   float64 `json:"total_co2_saved_g"`
	TotalCheckpoints     int64   `json:"total_checkpoints"`
	TotalEvictions       int64   `json:"total_evictions"`
}

// JobType enumerates the kinds of workload a SimulateRequest describes.
type JobType string

const (
	JobLLMFineTuning JobType = "llm_fine_tuning"
	JobLLMInference  JobType = "llm_inference"
	JobRendering3D   JobType = "rendering_3d"
	JobDataETL       JobType = "data_etl"
)

// GPUInstance is a priced GPU SKU offer surfaced by get_region/list_azs
// (§6).
type GPUInstance struct {
	SKU                string       `json:"sku"`
	GPUName            string       `json:"gpu_name"`
	GPUCount           int          `json:"gpu_count"`
	VCPUs              int          `json:"vcpus"`
	RAMGB              float64      `json:"ram_gb"`
	SpotPriceUSDHr     float64      `json:"spot_price_usd_hr"`
	OnDemandPriceUSDHr float64      `json:"ondemand_price_usd_hr"`
	SavingsPct         float64      `json:"savings_pct"`
	Availability       Availability `json:"availability"`
}

// AZInfo is one availability zone's current GPU catalog and environment
// readings, as returned by get_region/list_azs (§6).
type AZInfo struct {
	AZID                  string        `json:"az_id"`
	AZName                string        `json:"az_name"`
	GPUInstances          []GPUInstance `json:"gpu_instances"`
	CarbonIntensityGCO2KWh float64      `json:"carbon_intensity_gco2_kwh"`
	CarbonIndex           CarbonIndex   `json:"carbon_index"`
	TemperatureC          float64       `json:"temperature_c"`
	WindKmh               float64       `json:"wind_kmh"`
	Score                 *float64      `json:"score,omitempty"`
}

// RegionInfo is the get_region response (§6).
type RegionInfo struct {
	RegionID          string   `json:"region_id"`
	RegionName        string   `json:"region_name"`
	CloudProvider     string   `json:"cloud_provider"`
	Location          string   `json:"location"`
	AvailabilityZones []AZInfo `json:"availability_zones"`
}

// SimulateRequest is the simulate(job) input (§4.G, §6).
type SimulateRequest struct {
	JobType               JobType   `json:"job_type"`
	ModelName             string    `json:"model_name"`
	EstimatedGPUHours     float64   `json:"estimated_gpu_hours"`
	Deadline              time.Time `json:"deadline"`
	MinGPUMemoryGB        int       `json:"min_gpu_memory_gb"`
	Framework             string    `json:"framework"`
	CheckpointIntervalMin int       `json:"checkpoint_interval_min"`
	PreferredRegion       string    `json:"preferred_region,omitempty"`
}

// CheckpointSimulateRequest is the simulate_interruption(req) input
// (§4.I, §6).
type CheckpointSimulateRequest struct {
	JobID            string  `json:"job_id"`
	CurrentRegion    string  `json:"current_region"`
	CurrentAZ        string  `json:"current_az"`
	CurrentSKU       string  `json:"current_sku"`
	EpochProgressPct float64 `json:"epoch_progress_pct"`
	ModelSizeGB      float64 `json:"model_size_gb"`
}

// TimeShiftRequest is the compute_timeshift(req) input (§4.H, §6).
type TimeShiftRequest struct {
	JobType           JobType   `json:"job_type"`
	EstimatedGPUHours float64   `json:"estimated_gpu_hours"`
	Deadline          time.Time `json:"deadline"`
	MinGPUMemoryGB    int       `json:"min_gpu_memory_gb"`
	PreferredRegion   string    `json:"preferred_region,omitempty"`
	Flexible          bool      `json:"flexible"`
}

// Decision is the simulate() response's chosen placement (§4.G).
type Decision struct {
	PrimaryRegion    string     `json:"primary_region"`
	PrimaryAZ        string     `json:"primary_az"`
	GPUSKU           string     `json:"gpu_sku"`
	GPUName          string     `json:"gpu_name"`
	SpotPriceUSDHr   float64    `json:"spot_price_usd_hr"`
	StartStrategy    StartStrategy `json:"start_strategy"`
	OptimalStartTime *time.Time `json:"optimal_start_time,omitempty"`
	Reason           string     `json:"reason"`
}

// Fallback is the simulate() response's secondary placement (§4.G).
type Fallback struct {
	SecondaryAZ    string `json:"secondary_az"`
	SecondarySKU   string `json:"secondary_sku"`
	FallbackReason string `json:"fallback_reason"`
}

// CheckpointConfig is the simulate() response's recommended checkpointing
// policy (§4.G).
type CheckpointConfig struct {
	RecommendedIntervalMin    int     `json:"recommended_interval_min"`
	StorageTarget             string  `json:"storage_target"`
	EstimatedCheckpointSizeGB float64 `json:"estimated_checkpoint_size_gb"`
	Reason                    string  `json:"reason"`
}

// Savings is the simulate() response's cost-comparison summary (§4.G).
type Savings struct {
	SpotCostTotalUSD         float64 `json:"spot_cost_total_usd"`
	OnDemandCostTotalUSD     float64 `json:"ondemand_cost_total_usd"`
	SavingsUSD               float64 `json:"savings_usd"`
	SavingsEUR               float64 `json:"savings_eur"`
	SavingsPct               float64 `json:"savings_pct"`
	TimeShiftExtraSavingsUSD float64 `json:"time_shift_extra_savings_usd"`
}

// GreenImpact is the simulate() response's carbon-accounting summary
// (§4.G).
type GreenImpact struct {
	CarbonIntensityGCO2KWh float64 `json:"carbon_intensity_gco2_kwh"`
	TotalEnergyKWh         float64 `json:"total_energy_kwh"`
	TotalCO2Grams          float64 `json:"total_co2_grams"`
	CO2VsWorstRegionGrams  float64 `json:"co2_vs_worst_region_grams"`
	CO2SavedGrams          float64 `json:"co2_saved_grams"`
	Equivalent             string  `json:"equivalent"`
}

// ServerStep is one step of the simulate() response's illustrative
// execution path (§4.G).
type ServerStep struct {
	Step   int       `json:"step"`
	Action string    `json:"action"`
	Region string    `json:"region"`
	AZ     string    `json:"az"`
	GPU    string    `json:"gpu"`
	Time   time.Time `json:"time"`
}

// RiskAssessment is the simulate() response's eviction-risk summary
// (§4.G).
type RiskAssessment struct {
	SpotInterruptionProbability InterruptionRisk `json:"spot_interruption_probability"`
	EvictionMitigation          string           `json:"eviction_mitigation"`
	MaxEvictionsPerHour         int              `json:"max_evictions_per_hour"`
}

// SimulateResponse is the full simulate() output (§4.G, §6).
type SimulateResponse struct {
	JobID          string           `json:"job_id"`
	Decision       Decision         `json:"decision"`
	Fallback       Fallback         `json:"fallback"`
	Checkpointing  CheckpointConfig `json:"checkpointing"`
	Savings        Savings          `json:"savings"`
	GreenImpact    GreenImpact      `json:"green_impact"`
	ServerPath     []ServerStep     `json:"server_path"`
	RiskAssessment RiskAssessment   `json:"risk_assessment"`
}

// CheckpointEvent is the simulate_interruption() response (§4.I, §6).
type CheckpointEvent struct {
	JobID            string           `json:"job_id"`
	Status           string           `json:"status"`
	CheckpointSaved  bool             `json:"checkpoint_saved"`
	CheckpointSizeGB float64          `json:"checkpoint_size_gb"`
	SaveDurationSec  float64          `json:"save_duration_sec"`
	FromAZ           string           `json:"from_az"`
	ToAZ             string           `json:"to_az"`
	DowntimeMs       int              `json:"downtime_ms"`
	EpochProgressPct float64          `json:"epoch_progress_pct"`
	Resumed          bool             `json:"resumed"`
	Timeline         []TimelineEntry  `json:"timeline"`
}

// TimelineEntry is one fixed-offset event in a CheckpointEvent's timeline
// (§4.I).
type TimelineEntry struct {
	OffsetSec float64 `json:"offset_sec"`
	Event     string  `json:"event"`
}

// TimeShiftPlan is the compute_timeshift() response (§4.H, §6).
type TimeShiftPlan struct {
	Recommended              bool       `json:"recommended"`
	OptimalWindowStart        *time.Time `json:"optimal_window_start,omitempty"`
	OptimalWindowEnd          *time.Time `json:"optimal_window_end,omitempty"`
	Reason                    string     `json:"reason"`
	EstimatedSpotPriceUSDHr   float64    `json:"estimated_spot_price_usd_hr"`
	CurrentSpotPriceUSDHr     float64    `json:"current_spot_price_usd_hr"`
	PriceReductionPct         float64    `json:"price_reduction_pct"`
	CarbonReductionPct        float64    `json:"carbon_reduction_pct"`
	MeetsDeadline             bool       `json:"meets_deadline"`
}

// DashboardStats is the dashboard_stats() response (§4.J, §6).
type DashboardStats struct {
	TotalJobsManaged      int64     `json:"total_jobs_managed"`
	TotalSavingsUSD       float64   `json:"total_savings_usd"`
	TotalSavingsEUR       float64   `json:"total_savings_eur"`
	TotalCO2SavedGrams    float64   `json:"total_co2_saved_grams"`
	TotalCheckpointsSaved int64     `json:"total_checkpoints_saved"`
	TotalEvictionsHandled int64     `json:"total_evictions_handled"`
	AvgSavingsPct         float64   `json:"avg_savings_pct"`
	UptimePct             float64   `json:"uptime_pct"`
	RegionsMonitored      []string  `json:"regions_monitored"`
	LastUpdated           time.Time `json:"last_updated"`
}
