package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func benchSizes() []int {
	return []int{
		1024 * 1024,      // 1MB
		10 * 1024 * 1024, // 10MB
	}
}

// deterministicFile writes size bytes of a repeating pattern.
func deterministicFile(b *testing.B, dir string, size int) string {
	b.Helper()
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 256)
	}
	path := filepath.Join(dir, "testfile.dat")
	if err := os.WriteFile(path, content, 0644); err != nil {
		b.Fatalf("Failed to write test file: %v", err)
	}
	return path
}

// BenchmarkCompression benchmarks the compression performance with different file sizes
func BenchmarkCompression(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			testDir := b.TempDir()
			testFile := deterministicFile(b, testDir, size)
			compressedFile := filepath.Join(testDir, "compressed.zst")

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Compress(testFile, compressedFile, nil); err != nil {
					b.Fatalf("Compression failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkDecompression benchmarks the decompression performance
func BenchmarkDecompression(b *testing.B) {
	for _, size := range benchSizes() {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			testDir := b.TempDir()
			testFile := deterministicFile(b, testDir, size)
			compressedFile := filepath.Join(testDir, "compressed.zst")
			if _, err := Compress(testFile, compressedFile, nil); err != nil {
				b.Fatalf("Compression failed: %v", err)
			}
			decompressedFile := filepath.Join(testDir, "decompressed.dat")

			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Decompress(compressedFile, decompressedFile, nil); err != nil {
					b.Fatalf("Decompression failed: %v", err)
				}
			}
		})
	}
}
