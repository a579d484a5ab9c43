package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"poius/pkg/config"
)

// List decodes input without writing anything and reports its entries.
// A single-file archive yields one entry with an empty path.
func List(input string, cfg *config.Config) (*Manifest, error) {
	cfg = config.OrDefault(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source := filepath.Clean(input)
	if _, err := os.Stat(source); errors.Is(err, fs.ErrNotExist) {
		return &Manifest{Source: source, Missing: true, Message: NotFoundMessage}, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	ar, err := openArchive(source, cfg, nil)
	if err != nil {
		return nil, err
	}
	defer ar.Close()

	m := &Manifest{Source: source, Type: ar.typ, Algorithm: ar.algo, Entries: []ManifestEntry{}}
	if ar.typ == ArchiveFile {
		n, err := io.Copy(io.Discard, ar.r)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", source, err)
		}
		m.Entries = append(m.Entries, ManifestEntry{Size: uint64(n)})
		return m, nil
	}

	if m.Root, err = readArchiveHeader(ar.r); err != nil {
		return nil, err
	}
	for {
		relPath, size, err := readEntryHeader(ar.r)
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		if err := copyContent(io.Discard, ar.r, relPath, size); err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, ManifestEntry{Path: filepath.ToSlash(relPath), Size: size})
	}
}
