package main

import (
	"fmt"
	"time"

	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/server"
	"github.com/kbukum/demandflow/validation"
)

// Config is the flowdemo configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Status        server.Config       `yaml:"status" mapstructure:"status"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

// RangeConfig bounds the random source.
type RangeConfig struct {
	Low  float64 `yaml:"low" mapstructure:"low"`
	High float64 `yaml:"high" mapstructure:"high" validate:"gtfield=Low"`
}

// PipelineConfig describes source -> rounded -> windowed -> paced.
type PipelineConfig struct {
	Range    RangeConfig   `yaml:"range" mapstructure:"range"`
	Place    float64       `yaml:"place" mapstructure:"place" validate:"gt=0"`
	Window   int           `yaml:"window" mapstructure:"window" validate:"gte=1"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gt=0"`
	Jitter   float64       `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
	// Seed makes the source reproducible when non-zero.
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// ObservabilityConfig controls OTLP export. Metrics are recorded either way;
// without export they go to the no-op global provider.
type ObservabilityConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval" validate:"gte=0"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()

	p := &c.Pipeline
	if p.Range.Low == 0 && p.Range.High == 0 {
		p.Range.High = 100
	}
	if p.Place == 0 {
		p.Place = 0.5
	}
	if p.Window == 0 {
		p.Window = 5
	}
	if p.Interval == 0 {
		p.Interval = time.Second
	}

	c.Status.ApplyDefaults()

	o := &c.Observability
	if o.Endpoint == "" && o.Enabled {
		o.Endpoint = "localhost:4318"
	}
	if o.SampleRate == 0 {
		o.SampleRate = 1.0
	}
	if o.MetricInterval == 0 {
		o.MetricInterval = 15 * time.Second
	}
}

// Validate checks struct tags first, then the cross-field rules tags can't
// express.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c.Pipeline); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := validation.Validate(c.Observability); err != nil {
		return fmt.Errorf("observability: %w", err)
	}

	p, o := c.Pipeline, c.Observability
	return validation.New().
		Custom(p.Place <= p.Range.High-p.Range.Low, "pipeline.place", "must not exceed the range width").
		Custom(p.Window <= 10000, "pipeline.window", "must be at most 10000").
		Custom(!o.Enabled || o.Endpoint != "", "observability.endpoint", "is required when enabled").
		Validate()
}
