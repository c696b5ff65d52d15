package operations

import (
	"time"

	"solarcli/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Per-step timeouts; steps without an entry use DefaultTimeout
	StepTimeouts   map[string]time.Duration `json:"step_timeouts"`
	DefaultTimeout time.Duration            `json:"default_timeout"`

	// Overall bound on one Execute call; zero means no bound
	OperationTimeout time.Duration `json:"operation_timeout"`

	RetryConfig RetryConfig `json:"retry_config"`

	// Whether independent steps still run after a failure
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDIngest:  DefaultIngestTimeout,
			StepIDClean:   DefaultCleanTimeout,
			StepIDAnalyze: DefaultAnalyzeTimeout,
			StepIDExport:  DefaultExportTimeout,
		},
		DefaultTimeout:   DefaultStepTimeout,
		OperationTimeout: config.DefaultOperationTimeout,
		RetryConfig:      NewRetryConfig(),
	}
}

// ConfigFromPipeline builds a Config from the pipeline section of the
// application config. The configured step timeout applies to every step.
func ConfigFromPipeline(pc config.PipelineConfig) *Config {
	b := NewConfigBuilder().WithContinueOnError(pc.ContinueOnError)
	if pc.StepTimeout > 0 {
		b.WithUniformTimeout(pc.StepTimeout)
	}
	if pc.OperationTimeout > 0 {
		b.WithOperationTimeout(pc.OperationTimeout)
	}
	return b.Build()
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultStepTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// ConfigBuilder provides a fluent interface for building pipeline configurations
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: NewConfig(),
	}
}

// WithStageTimeout sets the timeout for a step
func (b *ConfigBuilder) WithStageTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStageTimeout(stepID, timeout)
	return b
}

// WithUniformTimeout drops the per-step timeouts so every step gets timeout
func (b *ConfigBuilder) WithUniformTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.DefaultTimeout = timeout
	b.config.StepTimeouts = make(map[string]time.Duration)
	return b
}

// WithOperationTimeout bounds a whole execution
func (b *ConfigBuilder) WithOperationTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.OperationTimeout = timeout
	return b
}

// WithRetryConfig sets the retry configuration
func (b *ConfigBuilder) WithRetryConfig(config RetryConfig) *ConfigBuilder {
	b.config.RetryConfig = config
	return b
}

// WithContinueOnError sets whether to continue on errors
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// Build returns the built configuration
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
