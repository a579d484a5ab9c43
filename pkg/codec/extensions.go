package codec

import (
	"bytes"
	"path/filepath"
	"strings"
)

var extensionMap = map[Algorithm]string{
	Zstd:   ".zst",
	LZ4:    ".lz4",
	Gzip:   ".gz",
	Brotli: ".br",
	Snappy: ".sz",
}

var reverseExtensionMap = map[string]Algorithm{
	".zst":    Zstd,
	".zstd":   Zstd,
	".lz4":    LZ4,
	".gz":     Gzip,
	".gzip":   Gzip,
	".br":     Brotli,
	".sz":     Snappy,
	".snappy": Snappy,
}

// Brotli streams carry no magic number and are only found by extension.
var magicBytes = []struct {
	algo  Algorithm
	magic []byte
}{
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{Gzip, []byte{0x1f, 0x8b}},
	{Snappy, []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}},
}

// MagicLen is the number of leading bytes Detect needs to see.
const MagicLen = 10

// Extension returns the file extension for algo, including the dot.
func Extension(algo Algorithm) string {
	return extensionMap[algo]
}

// FromExtension detects the algorithm from the last extension of name.
func FromExtension(name string) (Algorithm, bool) {
	algo, ok := reverseExtensionMap[strings.ToLower(filepath.Ext(name))]
	return algo, ok
}

// Detect identifies a compressed stream by its leading bytes.
func Detect(head []byte) (Algorithm, bool) {
	for _, m := range magicBytes {
		if len(head) >= len(m.magic) && bytes.Equal(head[:len(m.magic)], m.magic) {
			return m.algo, true
		}
	}
	return "", false
}

// Resolve picks the algorithm for an existing compressed file: magic bytes
// first, then the name's extension, then fallback.
func Resolve(name string, head []byte, fallback Algorithm) Algorithm {
	if algo, ok := Detect(head); ok {
		return algo
	}
	if algo, ok := FromExtension(name); ok {
		return algo
	}
	return fallback
}
