// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment.
//
// Files are searched in conventional locations (cmd/<service>/config.yml,
// config/config.yml, ./config.yml and .env variants) unless given
// explicitly. Environment variables override file values; FLOW_PIPELINE_WINDOW
// is bound to pipeline.window, flow.pipeline_window and the other nestings.
//
// # Usage
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
//	}
//
//	cfg, err := config.Load[Config]("flowdemo")
package config
