// Package validation checks configuration and input values, returning
// *errors.AppError with code INVALID_INPUT and per-field details.
//
// # Struct Tag Validation
//
//	type PipelineConfig struct {
//	    Window int     `mapstructure:"window" validate:"gte=1"`
//	    Jitter float64 `mapstructure:"jitter" validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(cfg)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.PositiveDuration("pipeline.interval", cfg.Interval)
//	err := v.Validate()
package validation
