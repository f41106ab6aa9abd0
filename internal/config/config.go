// Package config loads the reconciler's YAML configuration file,
// generalizing the teacher's internal/config/config.go (a single flat
// struct decoded with gopkg.in/yaml.v3) into the full configuration
// object spec.md §6 describes: the mediator block, one block per
// network, validation thresholds, the export target, alerting, and
// scheduling.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// MediatorConfig holds the AppLovin MAX credentials.
type MediatorConfig struct {
	APIKey       string   `yaml:"api_key"`
	Applications []string `yaml:"applications"`
	PackageName  string   `yaml:"package_name"`
}

// NetworkConfig is a per-network block. Not every field applies to every
// network (§4.5 documents which adapter needs which); unused fields are
// simply left zero.
type NetworkConfig struct {
	Enabled bool `yaml:"enabled"`

	APIKey             string `yaml:"api_key"`
	APISecret          string `yaml:"api_secret"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	AccessToken        string `yaml:"access_token"`
	ClientID           string `yaml:"client_id"`
	ClientSecret       string `yaml:"client_secret"`
	TokenURL           string `yaml:"token_url"`
	SKey               string `yaml:"skey"`
	AccountID          string `yaml:"account_id"`
	AppID              string `yaml:"app_id"`
	OrgCoreID          string `yaml:"org_core_id"`
	SecretKey          string `yaml:"secret_key"`
	RefreshToken       string `yaml:"refresh_token"`
	PublisherID        string `yaml:"publisher_id"`
	ServiceAccountJSON string `yaml:"service_account_json_path"`

	AppIDFilter     string            `yaml:"app_id_filter"`
	AdUnitOverrides map[string]string `yaml:"ad_unit_overrides"`
	TimeZone        string            `yaml:"time_zone"`

	// AppPlatformMap resolves an app ID to "android"/"ios" for networks
	// (Chartboost) whose report rows carry an app ID but no platform field.
	AppPlatformMap map[string]string `yaml:"app_platform_map"`
}

// ValidationConfig holds the reconciliation/alert thresholds.
type ValidationConfig struct {
	ThresholdPct    float64 `yaml:"threshold_pct"`
	MinRevenueFloor float64 `yaml:"min_revenue_floor"`
	DateRangeDays   int     `yaml:"date_range_days"`
}

// ExportConfig describes the columnar export target.
type ExportConfig struct {
	Project            string `yaml:"project"`
	Bucket             string `yaml:"bucket"`
	Prefix             string `yaml:"prefix"`
	LocalRoot          string `yaml:"local_root"`
	ServiceAccountPath string `yaml:"service_account_path"`
}

// AlertingConfig describes where the alert payload goes.
type AlertingConfig struct {
	Webhook      string `yaml:"webhook"`
	Channel      string `yaml:"channel"`
	DashboardURL string `yaml:"dashboard_url"`
}

// SchedulingConfig describes the --schedule daemon's cadence.
type SchedulingConfig struct {
	TimesOfDay []string `yaml:"times_of_day"`
	Timezone   string   `yaml:"timezone"`
}

// Config is the full reconciler configuration (spec.md §6).
type Config struct {
	Mediator   MediatorConfig           `yaml:"mediator"`
	Networks   map[string]NetworkConfig `yaml:"networks"`
	Validation ValidationConfig         `yaml:"validation"`
	Export     ExportConfig             `yaml:"export"`
	Alerting   AlertingConfig           `yaml:"alerting"`
	Scheduling SchedulingConfig         `yaml:"scheduling"`
}

var knownTopLevelKeys = map[string]bool{
	"mediator": true, "networks": true, "validation": true,
	"export": true, "alerting": true, "scheduling": true,
}

// Load reads and parses the YAML file at path. Unknown top-level keys
// are logged as a warning and otherwise ignored, per spec.md §6 ("unknown
// keys are ignored with a warning") — unlike yaml.Decoder.KnownFields,
// which would turn that into a hard parse failure.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	warnUnknownKeys(path, data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func warnUnknownKeys(path string, data []byte) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return // the real Unmarshal below will surface the parse error
	}
	for key := range raw {
		if !knownTopLevelKeys[key] {
			log.Printf("[config] %s: ignoring unrecognized top-level key %q", path, key)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Validation.ThresholdPct == 0 {
		cfg.Validation.ThresholdPct = 10
	}
	if cfg.Validation.MinRevenueFloor == 0 {
		cfg.Validation.MinRevenueFloor = 25
	}
	if cfg.Validation.DateRangeDays == 0 {
		cfg.Validation.DateRangeDays = 7
	}
}
