// Package config holds the settings shared by the archive and chunked
// pipelines, with presets and JSON file loading.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"

	"poius/pkg/codec"
)

// Mode selects how a compressed archive is reconstructed.
type Mode string

const (
	ModeAuto Mode = "auto" // sniff the directory magic
	ModeFile Mode = "file"
	ModeDir  Mode = "dir"
)

const (
	DefaultChunkSize  = 10 << 20 // 10 MiB
	MaxChunkSize      = 1 << 30  // frame lengths are stored as u32
	DefaultBufferSize = 64 << 10
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config holds the settings for one operation.
type Config struct {
	// Algorithm used when writing; reading detects it from the input.
	Algorithm codec.Algorithm `json:"algorithm"`

	// Level is algorithm specific; 0 selects the codec default.
	Level int `json:"level"`

	// Recursive archives the whole tree instead of the top-level files.
	Recursive bool `json:"recursive"`

	Mode Mode `json:"mode"`

	// ChunkSize is the uncompressed size of each chunk in chunked mode.
	ChunkSize int64 `json:"chunk_size"`

	// Workers caps concurrent chunk workers. 0 runs one per chunk.
	Workers int `json:"workers"`

	BufferSize int `json:"buffer_size"`

	// Progress receives throughput reports when set.
	Progress io.Writer `json:"-"`
}

// DefaultConfig returns zstd at its default level with 10 MiB chunks.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:  codec.Zstd,
		Level:      0,
		Mode:       ModeAuto,
		ChunkSize:  DefaultChunkSize,
		Workers:    0,
		BufferSize: DefaultBufferSize,
	}
}

// FastestConfig returns a configuration optimized for speed
func FastestConfig() *Config {
	c := DefaultConfig()
	c.Algorithm = codec.LZ4
	return c
}

// BestCompressionConfig returns a configuration optimized for ratio
func BestCompressionConfig() *Config {
	c := DefaultConfig()
	c.Algorithm = codec.Brotli
	c.Level = 11
	return c
}

// CompatibleConfig returns a configuration using gzip for maximum compatibility
func CompatibleConfig() *Config {
	c := DefaultConfig()
	c.Algorithm = codec.Gzip
	c.Level = 6
	return c
}

// Preset looks up a preset by name.
func Preset(name string) (*Config, bool) {
	switch name {
	case "default":
		return DefaultConfig(), true
	case "fastest":
		return FastestConfig(), true
	case "best":
		return BestCompressionConfig(), true
	case "compatible":
		return CompatibleConfig(), true
	}
	return nil, false
}

// Load reads a JSON config file. Fields absent from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := DefaultConfig()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// OrDefault returns c with zero fields filled in, or DefaultConfig when c
// is nil. c itself is not modified.
func OrDefault(c *Config) *Config {
	if c == nil {
		return DefaultConfig()
	}
	cp := *c
	cp.fillDefaults()
	return &cp
}

func (c *Config) fillDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = codec.Zstd
	}
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if err := codec.ValidateLevel(c.Algorithm, c.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Mode {
	case ModeAuto, ModeFile, ModeDir:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk size %d outside 1-%d", ErrInvalidConfig, c.ChunkSize, MaxChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: negative worker count %d", ErrInvalidConfig, c.Workers)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, c.BufferSize)
	}
	return nil
}
