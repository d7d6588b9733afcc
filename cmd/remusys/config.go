package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/medihbt/remusys-ir-sub003/internal/lower"
)

// Config is the driver's target-options file (remusys.toml), grounded on
// weiyilai-calico's and rcornwell-S370's flat-table TOML configs. Only
// FrameAlignment actually changes pass 4's behavior today (via
// lower.SetFrameAlignment); ReservedTempWindow and StackBoundsCheck are
// read and validated but do not yet change lowering — see DESIGN.md for
// why each is a validated no-op rather than wired in.
type Config struct {
	// FrameAlignment overrides the AAPCS64 stack-alignment requirement
	// every computed frame size rounds up to. Must be a
	// positive power of two; defaults to 16.
	FrameAlignment int64 `toml:"frame_alignment"`

	// ReservedTempWindow documents the spill-everywhere allocator's
	// per-class scratch register count (X8-X15 for GPR, D8-D15 for FPR,
	// i.e. 8). The number is part of the calling-convention contract the
	// allocator relies on, so a config requesting a different window is
	// rejected at load time rather than silently ignored.
	ReservedTempWindow int `toml:"reserved_temp_window"`

	// StackBoundsCheck toggles a guard-page stack-overflow probe at
	// function entry. The lowering pipeline implements no such probe, so
	// this flag is accepted for forward compatibility but rejected if set
	// to true.
	StackBoundsCheck bool `toml:"stack_bounds_check"`
}

// DefaultConfig matches the fixed constants pass 4 and pass 3 already use
// when no remusys.toml is present.
func DefaultConfig() Config {
	return Config{
		FrameAlignment:     16,
		ReservedTempWindow: 8,
		StackBoundsCheck:   false,
	}
}

// LoadConfig reads and validates a remusys.toml at path. An empty path
// returns DefaultConfig() unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects anything the lowering pipeline cannot actually honor.
func (c Config) Validate() error {
	if c.FrameAlignment <= 0 || c.FrameAlignment&(c.FrameAlignment-1) != 0 {
		return fmt.Errorf("config: frame_alignment must be a positive power of two, got %d", c.FrameAlignment)
	}
	if c.ReservedTempWindow != 8 {
		return fmt.Errorf("config: reserved_temp_window is fixed at 8 by the AArch64 calling convention the spill-everywhere allocator relies on, got %d", c.ReservedTempWindow)
	}
	if c.StackBoundsCheck {
		return fmt.Errorf("config: stack_bounds_check is not implemented by this lowering pipeline")
	}
	return nil
}

// Apply pushes the config's effective overrides into the lower package.
func (c Config) Apply() {
	lower.SetFrameAlignment(c.FrameAlignment)
}
