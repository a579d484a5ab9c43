package lib

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFacadeRoundTrip(t *testing.T) {
	testDir := t.TempDir()
	content := bytes.Repeat([]byte("facade "), 1000)
	src := filepath.Join(testDir, "notes.md")
	if err := os.WriteFile(src, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	res, err := Compress(src, "", nil)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	m, err := List(res.Output, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if m.Type != ArchiveFile || m.Entries[0].Size != uint64(len(content)) {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	res, err = Decompress(res.Output, filepath.Join(testDir, "notes.out"), nil)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Algorithm = Gzip
	cfg.ChunkSize = 1024
	cres, err := CompressChunked(context.Background(), src, "", cfg)
	if err != nil {
		t.Fatalf("CompressChunked failed: %v", err)
	}
	if cres.Chunks != 7 {
		t.Fatalf("Chunks = %d, want 7", cres.Chunks)
	}
	out := filepath.Join(testDir, "chunked.out")
	if _, err := DecompressChunked(context.Background(), cres.Output, out, nil); err != nil {
		t.Fatalf("DecompressChunked failed: %v", err)
	}

	for _, path := range []string{res.Output, out} {
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", path, err)
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("%s does not match original", path)
		}
	}
}
