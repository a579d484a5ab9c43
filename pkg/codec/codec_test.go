package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

var testData = []byte("Hello, World! This is test data for compression algorithms. " +
	"Let's make it a bit longer to get better compression ratios. " +
	"Compression is the process of encoding information using fewer bits than the original representation.")

func TestAllAlgorithms(t *testing.T) {
	algorithms := []struct {
		name  string
		algo  Algorithm
		level int
	}{
		{"zstd-default", Zstd, 0},
		{"zstd-level1", Zstd, 1},
		{"zstd-level19", Zstd, 19},
		{"lz4-default", LZ4, 0},
		{"lz4-level9", LZ4, 9},
		{"gzip-default", Gzip, 0},
		{"gzip-level9", Gzip, 9},
		{"brotli-default", Brotli, 0},
		{"brotli-level11", Brotli, 11},
		{"snappy", Snappy, 0},
	}

	for _, tt := range algorithms {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zw, err := NewWriter(tt.algo, &buf, tt.level)
			if err != nil {
				t.Fatalf("NewWriter failed: %v", err)
			}
			if _, err := zw.Write(testData); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			if err := zw.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			zr, err := NewReader(tt.algo, &buf)
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			defer zr.Close()

			got, err := io.ReadAll(zr)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if !bytes.Equal(got, testData) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(testData))
			}
		})
	}
}

func TestCompressBytesRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"simple text", []byte("hello world")},
		{"single byte", []byte{0x42}},
		{"binary data", []byte{0x00, 0x01, 0xff, 0xfe, 0x80, 0x7f}},
		{"repetitive", bytes.Repeat([]byte("aaaaaaaaaa"), 1000)},
	}

	for _, algo := range Algorithms() {
		for _, tt := range tests {
			t.Run(string(algo)+"/"+tt.name, func(t *testing.T) {
				frame, err := CompressBytes(tt.data, algo, 0)
				if err != nil {
					t.Fatalf("CompressBytes failed: %v", err)
				}
				got, err := DecompressBytes(frame, algo, int64(len(tt.data)))
				if err != nil {
					t.Fatalf("DecompressBytes failed: %v", err)
				}
				if !bytes.Equal(got, tt.data) {
					t.Errorf("round trip failed: got %v, want %v", got, tt.data)
				}
			})
		}
	}
}

func TestZstdEmptyInputWritesFrame(t *testing.T) {
	frame, err := CompressBytes(nil, Zstd, 0)
	if err != nil {
		t.Fatalf("CompressBytes failed: %v", err)
	}
	if algo, ok := Detect(frame); !ok || algo != Zstd {
		t.Fatalf("empty zstd output not a frame: % x", frame)
	}
	got, err := DecompressBytes(frame, Zstd, 0)
	if err != nil {
		t.Fatalf("DecompressBytes failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d bytes from an empty frame", len(got))
	}
}

func TestDecompressBytesLimit(t *testing.T) {
	data := bytes.Repeat([]byte{0}, 1<<20)
	for _, algo := range Algorithms() {
		t.Run(string(algo), func(t *testing.T) {
			frame, err := CompressBytes(data, algo, 0)
			if err != nil {
				t.Fatalf("CompressBytes failed: %v", err)
			}
			if _, err := DecompressBytes(frame, algo, 4096); !errors.Is(err, ErrFrameTooLarge) {
				t.Fatalf("err = %v, want ErrFrameTooLarge", err)
			}
			got, err := DecompressBytes(frame, algo, int64(len(data)))
			if err != nil {
				t.Fatalf("DecompressBytes at the exact limit failed: %v", err)
			}
			if len(got) != len(data) {
				t.Fatalf("decoded %d bytes, want %d", len(got), len(data))
			}
		})
	}
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		algo    Algorithm
		level   int
		wantErr error
	}{
		{Zstd, 0, nil},
		{Zstd, 22, nil},
		{Zstd, 23, ErrInvalidLevel},
		{LZ4, 10, ErrInvalidLevel},
		{Gzip, -1, ErrInvalidLevel},
		{Brotli, 11, nil},
		{Snappy, 99, nil},
		{Algorithm("xz"), 0, ErrUnsupportedAlgorithm},
	}

	for _, tt := range tests {
		err := ValidateLevel(tt.algo, tt.level)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateLevel(%s, %d) = %v, want %v", tt.algo, tt.level, err, tt.wantErr)
		}
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := NewWriter("xz", io.Discard, 0); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("NewWriter(xz) error = %v, want ErrUnsupportedAlgorithm", err)
	}
	if _, err := NewReader("xz", bytes.NewReader(nil)); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("NewReader(xz) error = %v, want ErrUnsupportedAlgorithm", err)
	}
}

func TestDetect(t *testing.T) {
	for _, algo := range []Algorithm{Zstd, LZ4, Gzip, Snappy} {
		frame, err := CompressBytes(testData, algo, 0)
		if err != nil {
			t.Fatalf("CompressBytes(%s) failed: %v", algo, err)
		}
		got, ok := Detect(frame[:min(len(frame), MagicLen)])
		if !ok || got != algo {
			t.Errorf("Detect(%s frame) = %q, %v", algo, got, ok)
		}
	}

	if _, ok := Detect([]byte("plain text")); ok {
		t.Error("Detect matched plain text")
	}
}

func TestExtensions(t *testing.T) {
	for _, algo := range Algorithms() {
		ext := Extension(algo)
		if ext == "" {
			t.Fatalf("no extension for %s", algo)
		}
		got, ok := FromExtension("report.txt" + ext)
		if !ok || got != algo {
			t.Errorf("FromExtension(report.txt%s) = %q, %v, want %s", ext, got, ok, algo)
		}
	}

	if _, ok := FromExtension("report.txt"); ok {
		t.Error("FromExtension matched .txt")
	}
	if got, ok := FromExtension("ARCHIVE.ZST"); !ok || got != Zstd {
		t.Errorf("FromExtension is case sensitive: %q, %v", got, ok)
	}
}

func TestResolve(t *testing.T) {
	gz, err := CompressBytes(testData, Gzip, 0)
	if err != nil {
		t.Fatalf("CompressBytes failed: %v", err)
	}

	tests := []struct {
		name     string
		file     string
		head     []byte
		fallback Algorithm
		want     Algorithm
	}{
		{"magic wins over extension", "data.zst", gz, Zstd, Gzip},
		{"extension when no magic", "data.br", []byte{0x0b, 0x02}, Zstd, Brotli},
		{"fallback", "data.bin", []byte("xx"), LZ4, LZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.file, tt.head, tt.fallback); got != tt.want {
				t.Errorf("Resolve = %s, want %s", got, tt.want)
			}
		})
	}
}
