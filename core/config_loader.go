package core

import (
	"encoding/json"
	"fmt"
	"io"
)

// LoadSimConfig reads a JSON config and overlays it on the defaults:
// absent fields keep their default value, unknown fields are an error.
// The merged result is validated before being returned.
func LoadSimConfig(r io.Reader) (*SimConfig, error) {
	cfg := DefaultSimConfig()

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode sim config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
