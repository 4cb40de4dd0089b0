package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vulkan.MaxFramesInFlight != 2 {
		t.Fatalf("MaxFramesInFlight = %d; want 2", cfg.Vulkan.MaxFramesInFlight)
	}
	if cfg.SessionID.String() == "" {
		t.Fatalf("expected a stamped session id")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	const doc = `
[application]
name = "demo"
width = 1920
height = 1080

[vulkan]
enable_validation_layers = false
max_frames_in_flight = 3
preferred_present_mode = "fifo"

[shaders]
directory = "shaders/spv"
hot_reload = true
`
	path := filepath.Join(t.TempDir(), "backend.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Application.Name != "demo" || cfg.Application.Width != 1920 {
		t.Fatalf("unexpected application config: %+v", cfg.Application)
	}
	if cfg.Vulkan.EnableValidationLayers {
		t.Fatalf("expected validation layers disabled")
	}
	if cfg.Vulkan.MaxFramesInFlight != 3 {
		t.Fatalf("MaxFramesInFlight = %d; want 3", cfg.Vulkan.MaxFramesInFlight)
	}
	if !cfg.Shaders.HotReload || cfg.Shaders.Directory != "shaders/spv" {
		t.Fatalf("unexpected shader config: %+v", cfg.Shaders)
	}
}

func TestDefaultSessionIDsAreUnique(t *testing.T) {
	a := Default()
	b := Default()
	if a.SessionID == b.SessionID {
		t.Fatalf("expected distinct session ids")
	}
}
