package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"poius/pkg/codec"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Algorithm != codec.Zstd {
		t.Errorf("Algorithm = %s, want zstd", c.Algorithm)
	}
	if c.ChunkSize != 10*1024*1024 {
		t.Errorf("ChunkSize = %d, want 10 MiB", c.ChunkSize)
	}
	if c.Mode != ModeAuto {
		t.Errorf("Mode = %s, want auto", c.Mode)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestPresetConfigs(t *testing.T) {
	tests := []struct {
		name string
		algo codec.Algorithm
	}{
		{"default", codec.Zstd},
		{"fastest", codec.LZ4},
		{"best", codec.Brotli},
		{"compatible", codec.Gzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Preset(tt.name)
			if !ok {
				t.Fatal("preset not found")
			}
			if c.Algorithm != tt.algo {
				t.Errorf("Algorithm = %s, want %s", c.Algorithm, tt.algo)
			}
			if err := c.Validate(); err != nil {
				t.Errorf("preset invalid: %v", err)
			}
		})
	}

	if _, ok := Preset("nope"); ok {
		t.Error("unknown preset found")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad algorithm", func(c *Config) { c.Algorithm = "xz" }},
		{"bad level", func(c *Config) { c.Level = 40 }},
		{"bad mode", func(c *Config) { c.Mode = "tree" }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"huge chunk", func(c *Config) { c.ChunkSize = MaxChunkSize + 1 }},
		{"negative workers", func(c *Config) { c.Workers = -1 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poius.json")
	data := `{"algorithm":"lz4","level":4,"recursive":true,"workers":2}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Algorithm != codec.LZ4 || c.Level != 4 || !c.Recursive || c.Workers != 2 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.ChunkSize != DefaultChunkSize || c.Mode != ModeAuto {
		t.Errorf("defaults not kept: %+v", c)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) = %v, want ErrNotExist", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"algorithm":`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load(bad json) = %v, want ErrInvalidConfig", err)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte(`{"algorithm":"zstd","level":99}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load(level 99) = %v, want ErrInvalidConfig", err)
	}
}

func TestOrDefault(t *testing.T) {
	if c := OrDefault(nil); c.Algorithm != codec.Zstd {
		t.Errorf("OrDefault(nil).Algorithm = %s", c.Algorithm)
	}

	in := &Config{Algorithm: codec.Gzip}
	out := OrDefault(in)
	if out.ChunkSize != DefaultChunkSize || out.BufferSize != DefaultBufferSize {
		t.Errorf("zero fields not filled: %+v", out)
	}
	if in.ChunkSize != 0 {
		t.Error("OrDefault modified its argument")
	}
}
