// Package lib provides compression and decompression functions for the poius
// formats. It re-exports the archive and chunked pipelines behind one import.
package lib

import (
	"context"

	"poius/pkg/chunked"
	"poius/pkg/codec"
	"poius/pkg/config"
	"poius/pkg/core"
)

// Constants for archive format re-exported from core
const (
	Magic            = core.Magic // Marks a directory archive
	NotFoundMessage  = core.NotFoundMessage
	DefaultChunkSize = config.DefaultChunkSize
)

// ArchiveType re-exported from core
type ArchiveType = core.ArchiveType

// Re-export archive types
const (
	ArchiveFile = core.ArchiveFile
	ArchiveDir  = core.ArchiveDir
)

type (
	Algorithm     = codec.Algorithm
	Config        = config.Config
	Mode          = config.Mode
	Result        = core.Result
	Manifest      = core.Manifest
	ManifestEntry = core.ManifestEntry
	ChunkedResult = chunked.Result
)

const (
	Zstd   = codec.Zstd
	LZ4    = codec.LZ4
	Gzip   = codec.Gzip
	Brotli = codec.Brotli
	Snappy = codec.Snappy

	ModeAuto = config.ModeAuto
	ModeFile = config.ModeFile
	ModeDir  = config.ModeDir
)

// DefaultConfig returns zstd at its default level with 10 MiB chunks.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// Compress is a wrapper around core.Compress
func Compress(input, output string, cfg *Config) (*Result, error) {
	return core.Compress(input, output, cfg)
}

// Decompress is a wrapper around core.Decompress
func Decompress(input, output string, cfg *Config) (*Result, error) {
	return core.Decompress(input, output, cfg)
}

// List is a wrapper around core.List
func List(input string, cfg *Config) (*Manifest, error) {
	return core.List(input, cfg)
}

// CompressChunked is a wrapper around chunked.Compress
func CompressChunked(ctx context.Context, src, dst string, cfg *Config) (*ChunkedResult, error) {
	return chunked.Compress(ctx, src, dst, cfg)
}

// DecompressChunked is a wrapper around chunked.Decompress
func DecompressChunked(ctx context.Context, src, dst string, cfg *Config) (*ChunkedResult, error) {
	return chunked.Decompress(ctx, src, dst, cfg)
}
