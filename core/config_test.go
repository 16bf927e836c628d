package core

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadSimConfig_OverlaysDefaults(t *testing.T) {
	in := `{
		"base_line_length": 30,
		"body": {"mass": 0.5},
		"line": {"stiffness": 900}
	}`

	cfg, err := LoadSimConfig(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadSimConfig: %v", err)
	}

	if cfg.BaseLineLength != 30 {
		t.Errorf("base_line_length = %g, want 30", cfg.BaseLineLength)
	}
	if cfg.Body.Mass != 0.5 {
		t.Errorf("body.mass = %g, want 0.5", cfg.Body.Mass)
	}
	if cfg.Line.Stiffness != 900 {
		t.Errorf("line.stiffness = %g, want 900", cfg.Line.Stiffness)
	}

	// Untouched fields keep their defaults.
	def := DefaultSimConfig()
	if cfg.Body.Span != def.Body.Span {
		t.Errorf("body.span = %g, want default %g", cfg.Body.Span, def.Body.Span)
	}
	if cfg.Line.Damping != def.Line.Damping {
		t.Errorf("line.damping = %g, want default %g", cfg.Line.Damping, def.Line.Damping)
	}
	if cfg.Gravity != def.Gravity {
		t.Errorf("gravity = %g, want default %g", cfg.Gravity, def.Gravity)
	}
}

func TestLoadSimConfig_RejectsUnknownFields(t *testing.T) {
	if _, err := LoadSimConfig(strings.NewReader(`{"line_stiffness": 900}`)); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestLoadSimConfig_RejectsInvalidValues(t *testing.T) {
	_, err := LoadSimConfig(strings.NewReader(`{"body": {"mass": -1}}`))
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("got %v, want ErrBadConfig", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultSimConfig()
	cfg.Line.Stiffness = -1
	cfg.Body.Mass = 0
	cfg.Solver.Relaxation = 2

	err := cfg.Validate()
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("got %v, want ErrBadConfig", err)
	}
	msg := err.Error()
	for _, want := range []string{"line.stiffness", "body.mass", "solver.relaxation"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	if err := DefaultSimConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}
