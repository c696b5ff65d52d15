package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"solarcli/pkg/contracts/domain"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Cleaning  CleaningConfig  `yaml:"cleaning" envconfig:"CLEANING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string          `yaml:"host" envconfig:"HOST" default:"127.0.0.1"`
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=0,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gt=0"`
	RequestTimeout  time.Duration   `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50" validate:"min=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration.
// Empty subdirectories resolve under DataDir.
type PathsConfig struct {
	DataDir         string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data" validate:"required"`
	RawDir          string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	CleanedDir      string `yaml:"cleaned_dir" envconfig:"CLEANED_DIR"`
	ReportsDir      string `yaml:"reports_dir" envconfig:"REPORTS_DIR"`
	LogsDir         string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	BeninFile       string `yaml:"benin_file" envconfig:"BENIN_FILE" default:"benin-malanville.csv"`
	SierraLeoneFile string `yaml:"sierraleone_file" envconfig:"SIERRALEONE_FILE" default:"sierraleone-bumbuna.csv"`
	TogoFile        string `yaml:"togo_file" envconfig:"TOGO_FILE" default:"togo-dapaong_qc.csv"`
}

// PipelineConfig contains operation manager configuration
type PipelineConfig struct {
	StepTimeout      time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" default:"10m" validate:"gt=0"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"1h" validate:"gt=0"`
	ContinueOnError  bool          `yaml:"continue_on_error" envconfig:"CONTINUE_ON_ERROR" default:"false"`
	WriteBOM         bool          `yaml:"write_bom" envconfig:"WRITE_BOM" default:"false"`
}

// CleaningConfig contains the cleaner's tunables
type CleaningConfig struct {
	ZThreshold        float64 `yaml:"z_threshold" envconfig:"Z_THRESHOLD" default:"3" validate:"gt=0"`
	NegativeTolerance float64 `yaml:"negative_tolerance" envconfig:"NEGATIVE_TOLERANCE" default:"50" validate:"gte=0"`
	OutlierPolicy     string  `yaml:"outlier_policy" envconfig:"OUTLIER_POLICY" default:"flag" validate:"oneof=flag impute drop"`
	ImputeMissing     bool    `yaml:"impute_missing" envconfig:"IMPUTE_MISSING" default:"true"`
}

// AnalysisConfig contains significance and recommendation thresholds
type AnalysisConfig struct {
	PrimaryMetric   string  `yaml:"primary_metric" envconfig:"PRIMARY_METRIC" default:"GHI" validate:"required"`
	Alpha           float64 `yaml:"alpha" envconfig:"ALPHA" default:"0.05" validate:"gt=0,lt=1"`
	CSPMinDNI       float64 `yaml:"csp_min_dni" envconfig:"CSP_MIN_DNI" default:"400" validate:"gte=0"`
	HeatAlertTamb   float64 `yaml:"heat_alert_tamb" envconfig:"HEAT_ALERT_TAMB" default:"40"`
	HumidityAlertRH float64 `yaml:"humidity_alert_rh" envconfig:"HUMIDITY_ALERT_RH" default:"75" validate:"gte=0,lte=100"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName     string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"solarcli"`
	TracingExporter string `yaml:"tracing_exporter" envconfig:"TRACING_EXPORTER" default:"none" validate:"oneof=none stdout"`
	MetricsEnabled  bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
}

// Load loads configuration from .env, environment variables and an optional
// YAML file. An empty configFile searches the usual locations.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile == "" {
		configFile = getConfigFilePath()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, fmt.Errorf("config file %s: %w", configFile, err)
	}

	// Load from config file if exists
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*Default(), *fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence).
// An env value still equal to its default yields to a non-zero file value.
func mergeConfigs(defaults, fileConfig, envConfig Config) Config {
	merged := envConfig
	mergeStruct(reflect.ValueOf(&merged).Elem(), reflect.ValueOf(defaults), reflect.ValueOf(fileConfig))
	return merged
}

func mergeStruct(dst, def, file reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		d, df, f := dst.Field(i), def.Field(i), file.Field(i)
		if d.Kind() == reflect.Struct {
			mergeStruct(d, df, f)
			continue
		}
		if f.IsZero() {
			continue
		}
		if reflect.DeepEqual(d.Interface(), df.Interface()) {
			d.Set(f)
		}
	}
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := domain.ParseMetric(c.Analysis.PrimaryMetric); err != nil {
		return fmt.Errorf("analysis.primary_metric: %w", err)
	}

	return nil
}

// SourceFiles maps each country to its raw file name
func (c *Config) SourceFiles() map[domain.Country]string {
	return map[domain.Country]string{
		domain.CountryBenin:       c.Paths.BeninFile,
		domain.CountrySierraLeone: c.Paths.SierraLeoneFile,
		domain.CountryTogo:        c.Paths.TogoFile,
	}
}

// ResolvePaths builds the absolute path set for this configuration
func (c *Config) ResolvePaths() (*Paths, error) {
	return NewPaths(c.Paths)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	// Check for config file in common locations
	locations := []string{
		"solarcli.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
		},
		Paths: PathsConfig{
			DataDir:         DefaultDataDir,
			LogsDir:         DefaultLogsDir,
			BeninFile:       DefaultBeninFile,
			SierraLeoneFile: DefaultSierraLeoneFile,
			TogoFile:        DefaultTogoFile,
		},
		Pipeline: PipelineConfig{
			StepTimeout:      DefaultStepTimeout,
			OperationTimeout: DefaultOperationTimeout,
		},
		Cleaning: CleaningConfig{
			ZThreshold:        DefaultZThreshold,
			NegativeTolerance: DefaultNegativeTolerance,
			OutlierPolicy:     DefaultOutlierPolicy,
			ImputeMissing:     true,
		},
		Analysis: AnalysisConfig{
			PrimaryMetric:   DefaultPrimaryMetric,
			Alpha:           DefaultAlpha,
			CSPMinDNI:       DefaultCSPMinDNI,
			HeatAlertTamb:   DefaultHeatAlertTamb,
			HumidityAlertRH: DefaultHumidityAlertRH,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     AppName,
			TracingExporter: "none",
			MetricsEnabled:  true,
		},
	}
}
