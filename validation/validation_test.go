package validation

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/demandflow/errors"
)

type rangeSection struct {
	Low  float64 `mapstructure:"low"`
	High float64 `mapstructure:"high" validate:"gtfield=Low"`
}

type pipelineSection struct {
	Range  rangeSection `mapstructure:"range"`
	Place  float64      `mapstructure:"place" validate:"gt=0"`
	Window int          `mapstructure:"window" validate:"gte=1,lte=1000"`
	Jitter float64      `mapstructure:"jitter" validate:"gte=0,lte=1"`
	Mode   string       `mapstructure:"mode" validate:"omitempty,oneof=print log"`
}

type demoConfig struct {
	Name     string          `mapstructure:"name" validate:"required"`
	Pipeline pipelineSection `mapstructure:"pipeline"`
}

func validConfig() demoConfig {
	return demoConfig{
		Name: "flowdemo",
		Pipeline: pipelineSection{
			Range:  rangeSection{Low: 0, High: 100},
			Place:  0.5,
			Window: 5,
			Jitter: 0,
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Invalid(t *testing.T) {
	cfg := validConfig()
	cfg.Name = ""
	cfg.Pipeline.Window = 0
	cfg.Pipeline.Jitter = 1.5
	cfg.Pipeline.Range.High = -1
	cfg.Pipeline.Mode = "shout"

	err := Validate(cfg)
	if !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{
		"name: is required",
		"pipeline.window: must be at least 1",
		"pipeline.jitter: must be at most 1",
		"pipeline.range.high: must be greater than low",
		"pipeline.mode: must be one of: print log",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}

	appErr, _ := errors.AsAppError(err)
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 5 {
		t.Errorf("expected 5 field errors in details, got %#v", appErr.Details["fields"])
	}
}

func TestValidate_NotAStruct(t *testing.T) {
	if err := Validate(42); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestValidator_Checks(t *testing.T) {
	tests := []struct {
		name  string
		check func(v *Validator)
		fails bool
	}{
		{"required ok", func(v *Validator) { v.Required("name", "x") }, false},
		{"required blank", func(v *Validator) { v.Required("name", "  ") }, true},
		{"positive ok", func(v *Validator) { v.Positive("place", 0.1) }, false},
		{"positive zero", func(v *Validator) { v.Positive("place", 0) }, true},
		{"positive NaN", func(v *Validator) { v.Positive("place", math.NaN()) }, true},
		{"positive Inf", func(v *Validator) { v.Positive("place", math.Inf(1)) }, true},
		{"between ok", func(v *Validator) { v.Between("jitter", 1, 0, 1) }, false},
		{"between out", func(v *Validator) { v.Between("jitter", -0.1, 0, 1) }, true},
		{"less ok", func(v *Validator) { v.Less("low", 1, "high", 2) }, false},
		{"less equal", func(v *Validator) { v.Less("low", 2, "high", 2) }, true},
		{"duration ok", func(v *Validator) { v.PositiveDuration("interval", time.Second) }, false},
		{"duration zero", func(v *Validator) { v.PositiveDuration("interval", 0) }, true},
		{"oneof empty", func(v *Validator) { v.OneOf("format", "", []string{"json"}) }, false},
		{"oneof bad", func(v *Validator) { v.OneOf("format", "xml", []string{"json"}) }, true},
		{"custom", func(v *Validator) { v.Custom(false, "x", "bad") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			tt.check(v)
			if v.HasErrors() != tt.fails {
				t.Errorf("expected fails=%v, got errors %v", tt.fails, v.Errors())
			}
		})
	}
}

func TestValidator_ValidateAggregates(t *testing.T) {
	v := New().
		PositiveDuration("pipeline.interval", -time.Second).
		Between("pipeline.jitter", 2, 0, 1)

	err := v.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "pipeline.interval: must be a positive duration; pipeline.jitter: must be between 0 and 1") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if New().Validate() != nil {
		t.Error("expected nil for no errors")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Low":           "low",
		"ServiceConfig": "service_config",
		"window":        "window",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
