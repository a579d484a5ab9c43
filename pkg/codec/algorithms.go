// Package codec adapts the streaming compressors used by poius to one
// writer/reader pair per algorithm. Every writer produces a standard frame
// for its format, so output stays readable by the reference tools.
package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a compression format.
type Algorithm string

const (
	Zstd   Algorithm = "zstd"
	LZ4    Algorithm = "lz4"
	Gzip   Algorithm = "gzip"
	Brotli Algorithm = "brotli"
	Snappy Algorithm = "snappy"
)

var (
	ErrUnsupportedAlgorithm = errors.New("codec: unsupported compression algorithm")
	ErrInvalidLevel         = errors.New("codec: invalid compression level")
	ErrFrameTooLarge        = errors.New("codec: frame decodes past its size limit")
)

// Algorithms lists every supported algorithm, default first.
func Algorithms() []Algorithm {
	return []Algorithm{Zstd, LZ4, Gzip, Brotli, Snappy}
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case Zstd, LZ4, Gzip, Brotli, Snappy:
		return true
	}
	return false
}

// levelRange returns the accepted level bounds. Level 0 always means the
// codec's own default.
func levelRange(algo Algorithm) (lo, hi int) {
	switch algo {
	case Zstd:
		return 0, 22
	case LZ4, Gzip:
		return 0, 9
	case Brotli:
		return 0, 11
	default:
		return 0, 0 // snappy has no levels
	}
}

// ValidateLevel checks level against the range algo accepts.
func ValidateLevel(algo Algorithm, level int) error {
	if !algo.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
	if algo == Snappy {
		return nil
	}
	lo, hi := levelRange(algo)
	if level < lo || level > hi {
		return fmt.Errorf("%w: %s accepts %d-%d, got %d", ErrInvalidLevel, algo, lo, hi, level)
	}
	return nil
}

// NewWriter returns an encoder writing algo frames to w. Close finishes the
// frame; it does not close w.
func NewWriter(algo Algorithm, w io.Writer, level int) (io.WriteCloser, error) {
	if err := ValidateLevel(algo, level); err != nil {
		return nil, err
	}
	switch algo {
	case Zstd:
		return newZstdWriter(w, level)
	case LZ4:
		return newLZ4Writer(w, level)
	case Gzip:
		return newGzipWriter(w, level)
	case Brotli:
		return newBrotliWriter(w, level), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// NewReader returns a decoder reading algo frames from r. Close releases
// decoder state; it does not close r.
func NewReader(algo Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algo {
	case Zstd:
		return newZstdReader(r)
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Gzip:
		return gzip.NewReader(r)
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

func newZstdWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level == 0 {
		level = 3
	}
	// Zero frames keep empty inputs decodable by the zstd CLI.
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithZeroFrames(true),
	)
}

// zstdReader adapts *zstd.Decoder, whose Close returns nothing.
type zstdReader struct {
	*zstd.Decoder
}

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zstdReader{dec}, nil
}

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func newLZ4Writer(w io.Writer, level int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level])); err != nil {
		return nil, fmt.Errorf("lz4 options: %w", err)
	}
	return zw, nil
}

func newGzipWriter(w io.Writer, level int) (io.WriteCloser, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	return gzip.NewWriterLevel(w, level)
}

func newBrotliWriter(w io.Writer, level int) io.WriteCloser {
	if level == 0 {
		level = brotli.DefaultCompression
	}
	return brotli.NewWriterLevel(w, level)
}
