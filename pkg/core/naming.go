package core

import (
	"path/filepath"
	"strings"

	"poius/pkg/codec"
)

// EncodedPath appends the algorithm's extension: report.txt becomes
// report.txt.zst.
func EncodedPath(source string, algo codec.Algorithm) string {
	return filepath.Clean(source) + codec.Extension(algo)
}

// DecodedPath strips everything from the first dot of the base name, so
// report.txt.zst becomes report and the original extension is lost. A
// leading dot is kept. A name without any extension gets ".out" so the
// result never equals the input.
func DecodedPath(archive string) string {
	archive = filepath.Clean(archive)
	dir, base := filepath.Split(archive)
	if base == "" {
		return archive + ".out"
	}
	if i := strings.IndexByte(base[1:], '.'); i >= 0 {
		base = base[:i+1]
	}
	out := filepath.Join(dir, base)
	if out == archive {
		out += ".out"
	}
	return out
}
