package core

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"poius/pkg/codec"
	"poius/pkg/config"
	"poius/pkg/progress"
)

// Compress archives input into output. An empty output selects
// EncodedPath(input). A regular file is stored raw; a directory is stored
// as framed entries, top-level files only unless cfg.Recursive is set.
func Compress(input, output string, cfg *config.Config) (*Result, error) {
	cfg = config.OrDefault(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source := filepath.Clean(input)
	info, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(source), nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if output == "" {
		output = EncodedPath(source, cfg.Algorithm)
	}
	if samePath(source, output) {
		return nil, fmt.Errorf("compress %s: %w", source, ErrOutputIsInput)
	}

	var archiveType ArchiveType
	var entries []Entry
	if info.IsDir() {
		archiveType = ArchiveDir
		entries, err = collectDirEntries(source, output, cfg.Recursive)
		if err != nil {
			return nil, fmt.Errorf("collect entries: %w", err)
		}
	} else {
		archiveType = ArchiveFile
		entries = []Entry{{RelPath: "", FilePath: source, Size: info.Size()}}
	}

	totalSize := calculateTotalSize(entries)
	tracker := progress.New(cfg.Progress, uint64(totalSize))
	tracker.Start()
	defer tracker.Stop()

	if err := compressFiles(entries, output, archiveType, filepath.Base(source), cfg, tracker); err != nil {
		return nil, err
	}

	outInfo, err := os.Stat(output)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	return &Result{
		Source:    source,
		Output:    output,
		Type:      archiveType,
		Algorithm: cfg.Algorithm,
		Entries:   len(entries),
		BytesIn:   totalSize,
		BytesOut:  outInfo.Size(),
		Message:   fmt.Sprintf("Compression successful. Compressed file: %q", output),
	}, nil
}

// calculateTotalSize calculates the total size of all files to be compressed
func calculateTotalSize(entries []Entry) int64 {
	var totalSize int64
	for _, entry := range entries {
		totalSize += entry.Size
	}
	return totalSize
}

// collectDirEntries gathers the regular files under root with their
// relative paths. Without recursion only the top level is read and
// subdirectories are skipped. The archive being written is never included.
func collectDirEntries(root, output string, recursive bool) ([]Entry, error) {
	self, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("absolute output path: %w", err)
	}

	var entries []Entry
	add := func(path string, d fs.DirEntry) error {
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == self {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		entries = append(entries, Entry{RelPath: relPath, FilePath: path, Size: info.Size()})
		return nil
	}

	if !recursive {
		dirEntries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read directory %s: %w", root, err)
		}
		for _, d := range dirEntries {
			if err := add(filepath.Join(root, d.Name()), d); err != nil {
				return nil, err
			}
		}
		return entries, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return add(path, d)
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", root, err)
	}
	return entries, nil
}

// compressFiles streams every entry through one encoder into output. A
// partially written output is removed on failure.
func compressFiles(entries []Entry, output string, archiveType ArchiveType, rootName string, cfg *config.Config, tracker *progress.Tracker) (err error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(output)
		}
	}()

	bw := bufio.NewWriterSize(f, cfg.BufferSize)
	zw, err := codec.NewWriter(cfg.Algorithm, bw, cfg.Level)
	if err != nil {
		return fmt.Errorf("create %s encoder: %w", cfg.Algorithm, err)
	}

	werr := writePayload(zw, entries, archiveType, rootName, tracker)
	cerr := zw.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("finish %s frame: %w", cfg.Algorithm, cerr)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

// samePath reports whether a and b name the same file.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func writePayload(w io.Writer, entries []Entry, archiveType ArchiveType, rootName string, tracker *progress.Tracker) error {
	if archiveType == ArchiveFile {
		return copyFile(w, entries[0].FilePath, tracker)
	}
	if err := writeArchiveHeader(w, rootName); err != nil {
		return err
	}
	for _, entry := range entries {
		if err := writeEntry(w, entry, tracker); err != nil {
			return err
		}
	}
	return nil
}

// copyFile streams a whole file into w.
func copyFile(w io.Writer, path string, tracker *progress.Tracker) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	if _, err := io.Copy(w, &progress.Reader{R: src, T: tracker}); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	return nil
}

// writeArchiveHeader writes the directory magic and root name.
func writeArchiveHeader(w io.Writer, rootName string) error {
	if len(rootName) > MaxPathLen {
		return fmt.Errorf("root name: %w", ErrPathTooLong)
	}
	hdr := make([]byte, 0, len(Magic)+2+len(rootName))
	hdr = append(hdr, Magic...)
	hdr = binary.LittleEndian.AppendUint16(hdr, uint16(len(rootName)))
	hdr = append(hdr, rootName...)
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}
	return nil
}

// writeEntry writes one length-prefixed entry. Exactly entry.Size content
// bytes are written; a file that shrank since it was listed fails.
func writeEntry(w io.Writer, entry Entry, tracker *progress.Tracker) error {
	relPath := filepath.ToSlash(entry.RelPath)
	if len(relPath) > MaxPathLen {
		return fmt.Errorf("%s: %w", entry.RelPath, ErrPathTooLong)
	}

	hdr := make([]byte, 0, 4+len(relPath)+8)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(len(relPath)))
	hdr = append(hdr, relPath...)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(entry.Size))
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("write entry header %s: %w", entry.RelPath, err)
	}

	src, err := os.Open(entry.FilePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.FilePath, err)
	}
	defer src.Close()

	n, err := io.CopyN(w, &progress.Reader{R: src, T: tracker}, entry.Size)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: wrote %d of %d bytes: %w", entry.FilePath, n, entry.Size, ErrSizeChanged)
	}
	if err != nil {
		return fmt.Errorf("compress %s: %w", entry.FilePath, err)
	}
	return nil
}
