// Package config decodes the TOML-formatted backend configuration used to
// bootstrap a Device (window size, validation layers, frame pacing, shader
// directory). Grounded on the teacher's dependency on pelletier/go-toml/v2,
// which the copied engine never actually wired into a config loader.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

// BackendConfig is the root of the backend's TOML configuration file.
type BackendConfig struct {
	Application ApplicationConfig `toml:"application"`
	Vulkan      VulkanConfig      `toml:"vulkan"`
	Shaders     ShaderConfig      `toml:"shaders"`
	Logging     LoggingConfig     `toml:"logging"`

	// SessionID is not read from the file; a fresh one is stamped on every
	// Load (and by Default), the way the teacher's core/identifier.go assigns
	// ids to engine objects. The core logger does not add it to log lines.
	SessionID uuid.UUID `toml:"-"`
}

type ApplicationConfig struct {
	Name   string `toml:"name"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type VulkanConfig struct {
	EnableValidationLayers bool   `toml:"enable_validation_layers"`
	MaxFramesInFlight      uint32 `toml:"max_frames_in_flight"`
	// PreferredPresentMode overrides the §4.9 MAILBOX > IMMEDIATE > FIFO
	// preference order when non-empty. Accepted values: "mailbox",
	// "immediate", "fifo".
	PreferredPresentMode string `toml:"preferred_present_mode"`
}

type ShaderConfig struct {
	Directory string `toml:"directory"`
	HotReload bool   `toml:"hot_reload"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration the teacher's hardcoded constants
// implied (MaxFramesInFlight = 2, validation layers on, no hot reload).
func Default() *BackendConfig {
	return &BackendConfig{
		Application: ApplicationConfig{Name: "vkcore", Width: 1280, Height: 720},
		Vulkan: VulkanConfig{
			EnableValidationLayers: true,
			MaxFramesInFlight:      2,
		},
		Shaders: ShaderConfig{
			Directory: "assets/shaders",
			HotReload: false,
		},
		Logging: LoggingConfig{Level: "debug"},
		SessionID: uuid.New(),
	}
}

// Load decodes a TOML configuration file at path, falling back to Default()
// values for any field left unset. A missing file is not an error: callers
// that haven't written a config file yet still get a runnable default.
func Load(path string) (*BackendConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	cfg.SessionID = uuid.New()

	if cfg.Vulkan.MaxFramesInFlight == 0 {
		cfg.Vulkan.MaxFramesInFlight = 2
	}
	if cfg.Shaders.Directory == "" {
		cfg.Shaders.Directory = "assets/shaders"
	}

	return cfg, nil
}
