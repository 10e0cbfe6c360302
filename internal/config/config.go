package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Mode selects which exporter variant the configuration is for
type Mode string

const (
	ModeCloud Mode = "cloud"
	ModeMock  Mode = "mock"
)

// Configuration validation constants
const (
	MinRefreshInterval = 1     // Minimum refresh interval in seconds
	MinPort            = 1     // Minimum valid port number
	MaxPort            = 65535 // Maximum valid port number
	MaxAPITimeout      = 300   // API timeout ceiling in seconds

	// Default values
	DefaultCloudHTTPPort        = 8001
	DefaultCloudRefreshInterval = 300 // 5 minutes in seconds
	DefaultMockHTTPPort         = 8000
	DefaultMockRefreshInterval  = 5
	DefaultLogLevel             = "info"
	DefaultAPITimeout           = 30  // API timeout in seconds
	DefaultCollectTimeout       = 120 // Per-collector timeout in seconds
	DefaultAWSRegion            = "us-east-1"
	DefaultFortuneFormat        = FortuneFormatJSON
)

// Fortune response encodings
const (
	FortuneFormatJSON = "json"
	FortuneFormatText = "text"
)

// AWSConfig selects the AWS account and region to read
type AWSConfig struct {
	Enabled *bool  `yaml:"enabled"` // Pointer to distinguish between false and unset
	Region  string `yaml:"region" validate:"required"`
	Profile string `yaml:"profile"`
}

// Subscription represents an Azure subscription to include in the Azure cost gauges
type Subscription struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

// AzureConfig lists Azure subscriptions. Azure collection is off when empty.
type AzureConfig struct {
	Subscriptions []Subscription `yaml:"subscriptions" validate:"dive"`
}

// Walk configures one synthetic random-walk gauge
type Walk struct {
	Name    string  `yaml:"name" validate:"required"`
	Help    string  `yaml:"help"`
	Initial float64 `yaml:"initial"`
	Step    float64 `yaml:"step" validate:"gte=0"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max" validate:"gtefield=Min"`
}

// MockConfig lists the random walks served by the mock exporter
type MockConfig struct {
	Walks []Walk `yaml:"walks" validate:"dive"`
}

// FortuneConfig controls the optional /fortune route
type FortuneConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format" validate:"oneof=json text"`
}

// Config represents the application configuration
type Config struct {
	Mode            Mode          `yaml:"-"`
	HTTPPort        int           `yaml:"http_port" validate:"min=1,max=65535"`
	RefreshInterval int           `yaml:"refresh_interval" validate:"min=1"` // seconds
	LogLevel        string        `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	APITimeout      int           `yaml:"api_timeout" validate:"min=1,max=300"` // seconds, per upstream call
	CollectTimeout  int           `yaml:"collect_timeout" validate:"min=1"`     // seconds, per collector per tick
	AWS             AWSConfig     `yaml:"aws"`
	Azure           AzureConfig   `yaml:"azure"`
	Mock            MockConfig    `yaml:"mock"`
	Fortune         FortuneConfig `yaml:"fortune"`
}

// AWSEnabled reports whether the AWS collectors should run
func (c *Config) AWSEnabled() bool {
	return c.AWS.Enabled == nil || *c.AWS.Enabled
}

// DefaultWalks are the synthetic gauges of the mock exporter
func DefaultWalks() []Walk {
	return []Walk{
		{Name: "mock_system_cpu_percent", Help: "Mock CPU usage percentage", Initial: 50, Step: 5, Min: 0, Max: 100},
		{Name: "mock_system_mem_percent", Help: "Mock Memory usage percentage", Initial: 40, Step: 5, Min: 0, Max: 100},
		{Name: "mock_cloud_daily_cost_usd", Help: "Mock Cloud Daily Cost in USD", Initial: 5, Step: 1, Min: 0, Max: 500},
		{Name: "mock_ec2_hourly_cost_usd", Help: "Mock EC2 Hourly Cost in USD", Initial: 0.2, Step: 0.05, Min: 0.1, Max: 2},
	}
}

// Load builds the configuration for mode. The YAML file is optional: an empty
// path starts from defaults. Environment variables override the file.
func Load(path string, mode Mode) (*Config, error) {
	var cfg Config

	if path != "" {
		// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Mode = mode
	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.HTTPPort == 0 {
		if cfg.Mode == ModeMock {
			cfg.HTTPPort = DefaultMockHTTPPort
		} else {
			cfg.HTTPPort = DefaultCloudHTTPPort
		}
	}
	if cfg.RefreshInterval == 0 {
		if cfg.Mode == ModeMock {
			cfg.RefreshInterval = DefaultMockRefreshInterval
		} else {
			cfg.RefreshInterval = DefaultCloudRefreshInterval
		}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.APITimeout == 0 {
		cfg.APITimeout = DefaultAPITimeout
	}
	if cfg.CollectTimeout == 0 {
		cfg.CollectTimeout = DefaultCollectTimeout
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = DefaultAWSRegion
	}
	if cfg.Mode == ModeMock && len(cfg.Mock.Walks) == 0 {
		cfg.Mock.Walks = DefaultWalks()
	}
	if cfg.Fortune.Format == "" {
		cfg.Fortune.Format = DefaultFortuneFormat
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		env    string
		target *int
	}{
		{"EXPORTER_HTTP_PORT", &cfg.HTTPPort},
		{"EXPORTER_REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"EXPORTER_API_TIMEOUT", &cfg.APITimeout},
		{"EXPORTER_COLLECT_TIMEOUT", &cfg.CollectTimeout},
	}
	for _, o := range ints {
		val := os.Getenv(o.env)
		if val == "" {
			continue
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: must be an integer, got %q", o.env, val)
		}
		*o.target = i
	}

	if val := os.Getenv("EXPORTER_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("AWS_REGION"); val != "" {
		cfg.AWS.Region = val
	}
	if val := os.Getenv("AWS_PROFILE"); val != "" {
		cfg.AWS.Profile = val
	}

	// Comma-separated id:name pairs
	// Example: AZURE_COST_SUBSCRIPTIONS="sub1:prod,sub2:dev"
	if val := os.Getenv("AZURE_COST_SUBSCRIPTIONS"); val != "" {
		subs := []Subscription{}
		for _, pair := range strings.Split(val, ",") {
			parts := strings.SplitN(pair, ":", 2)
			id := strings.TrimSpace(parts[0])
			if id == "" {
				continue
			}
			name := id
			if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
				name = strings.TrimSpace(parts[1])
			}
			subs = append(subs, Subscription{ID: id, Name: name})
		}
		if len(subs) > 0 {
			cfg.Azure.Subscriptions = subs
		}
	}

	return nil
}

var structValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml keys rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validate validates the configuration
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%s: failed %q check (value %v)", fe.Namespace(), describeTag(fe), fe.Value())
		}
		return err
	}

	switch cfg.Mode {
	case ModeCloud:
		if !cfg.AWSEnabled() && len(cfg.Azure.Subscriptions) == 0 {
			return fmt.Errorf("cloud mode needs aws enabled or at least one azure subscription")
		}
	case ModeMock:
		if len(cfg.Mock.Walks) == 0 {
			return fmt.Errorf("mock mode needs at least one walk")
		}
	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}

	seen := make(map[string]struct{}, len(cfg.Mock.Walks))
	for i, w := range cfg.Mock.Walks {
		if _, ok := seen[w.Name]; ok {
			return fmt.Errorf("walk at index %d reuses name %q", i, w.Name)
		}
		seen[w.Name] = struct{}{}
	}

	return nil
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
