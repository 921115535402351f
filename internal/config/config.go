// Package config provides centralized configuration management for the
// NERVE engine. It supports loading from a YAML file and environment
// variable overrides, composed in that priority order over compiled-in
// defaults.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scraper ScraperConfig `yaml:"scraper"`
	Scoring ScoringConfig `yaml:"scoring"`
	Logging LoggingConfig `yaml:"logging"`
	Stats   StatsConfig   `yaml:"stats"`
	Vision  VisionConfig  `yaml:"vision"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ScraperConfig holds Scraper Loop settings (§4.D, §5).
type ScraperConfig struct {
	Interval        time.Duration `yaml:"interval"`
	AzureTimeout    time.Duration `yaml:"azure_timeout"`
	WeatherTimeout  time.Duration `yaml:"weather_timeout"`
	CarbonTimeout   time.Duration `yaml:"carbon_timeout"`
	HistoryCapacity int           `yaml:"history_capacity"`
	MaxErrorLog     int           `yaml:"max_error_log"`
}

// ScoringConfig holds the NERVE weights and the §9 open-question knobs.
type ScoringConfig struct {
	WeightPrice        float64 `yaml:"weight_price"`
	WeightCarbon       float64 `yaml:"weight_carbon"`
	WeightAvailability float64 `yaml:"weight_availability"`
	WeightCooling      float64 `yaml:"weight_cooling"`
	WeightRenewable    float64 `yaml:"weight_renewable"`
	EURPerUSD          float64 `yaml:"eur_per_usd"`
	PUE                float64 `yaml:"pue"`
	// TimeShiftThresholdPct is the §9 open question's config knob:
	// recommend time-shifting only when price reduction exceeds this
	// percentage. Defaults to 5, per spec's resolution of the 5%/10%
	// ambiguity (see DESIGN.md).
	TimeShiftThresholdPct float64 `yaml:"time_shift_threshold_pct"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	EnableFile  bool   `yaml:"enable_file"`
	EnableJSON  bool   `yaml:"enable_json"`
	EnableColor bool   `yaml:"enable_color"`
	LogDir      string `yaml:"log_dir"`
}

// StatsConfig holds Stats Store settings (§4.J).
type StatsConfig struct {
	FilePath   string `yaml:"file_path"`
	SQLitePath string `yaml:"sqlite_path"` // empty disables the SQLite audit sink
}

// VisionConfig holds vision-summary export settings.
type VisionConfig struct {
	Enabled  bool   `yaml:"enabled"`
	FilePath string `yaml:"file_path"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Scraper: ScraperConfig{
			Interval:        60 * time.Second,
			AzureTimeout:    15 * time.Second,
			WeatherTimeout:  10 * time.Second,
			CarbonTimeout:   10 * time.Second,
			HistoryCapacity: 1440,
			MaxErrorLog:     10,
		},
		Scoring: ScoringConfig{
			WeightPrice:           0.50,
			WeightCarbon:          0.20,
			WeightAvailability:    0.15,
			WeightCooling:         0.10,
			WeightRenewable:       0.05,
			EURPerUSD:             0.92,
			PUE:                   1.2,
			TimeShiftThresholdPct: 5.0,
		},
		Logging: LoggingConfig{
			Level:       "info",
			EnableFile:  true,
			EnableJSON:  true,
			EnableColor: true,
			LogDir:      "logs",
		},
		Stats: StatsConfig{
			FilePath: "nerve-stats.json",
		},
		Vision: VisionConfig{
			Enabled:  true,
			FilePath: "nerve-vision.json",
		},
	}
}

// Get returns the global configuration singleton, loading it on first
// call.
func Get() *Config {
	configOnce.Do(func() {
		globalConfig = DefaultConfig()
		loadConfigFile()
		loadEnvOverrides()
	})
	return globalConfig
}

// Reload reloads configuration from file and environment, replacing the
// global singleton. Intended for tests and for operators that want to
// re-read config.yaml without restarting.
func Reload() error {
	configMu.Lock()
	defer configMu.Unlock()

	globalConfig = DefaultConfig()
	loadConfigFile()
	loadEnvOverrides()
	return nil
}

func loadConfigFile() {
	paths := []string{
		"config.yaml",
		"config.yml",
		filepath.Join(getExecutableDir(), "config.yaml"),
		filepath.Join(getExecutableDir(), "config.yml"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, globalConfig); err != nil {
			continue
		}
		return
	}
}

func loadEnvOverrides() {
	if interval := os.Getenv("NERVE_SCRAPE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			globalConfig.Scraper.Interval = d
		}
	}
	if port := os.Getenv("NERVE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			globalConfig.Server.Port = p
		}
	}
	if threshold := os.Getenv("NERVE_TIMESHIFT_THRESHOLD_PCT"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			globalConfig.Scoring.TimeShiftThresholdPct = f
		}
	}

	// Lambda detection mirrors the teacher's IsLambda()/GetCachePath():
	// disable file logging and color, redirect durable files under /tmp.
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		globalConfig.Logging.EnableFile = false
		globalConfig.Logging.EnableColor = false
		globalConfig.Stats.FilePath = filepath.Join("/tmp", "nerve-stats.json")
		globalConfig.Vision.FilePath = filepath.Join("/tmp", "nerve-vision.json")
	}
}

func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// IsLambda returns true if running in AWS Lambda.
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
