package core

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"poius/pkg/codec"
	"poius/pkg/config"
	"poius/pkg/progress"
)

// Decompress reconstructs the file or directory stored in input. An empty
// output selects DecodedPath(input). cfg.Mode decides between a single file
// and a directory; ModeAuto looks for the directory magic.
func Decompress(input, output string, cfg *config.Config) (*Result, error) {
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
	if info.IsDir() {
		return nil, fmt.Errorf("decompress %s: is a directory: %w", source, ErrNotArchive)
	}
	if output == "" {
		output = DecodedPath(source)
	}
	if samePath(source, output) {
		return nil, fmt.Errorf("decompress %s: %w", source, ErrOutputIsInput)
	}

	tracker := progress.New(cfg.Progress, uint64(info.Size()))
	tracker.Start()
	defer tracker.Stop()

	ar, err := openArchive(source, cfg, tracker)
	if err != nil {
		return nil, err
	}
	defer ar.Close()

	res := &Result{
		Source:    source,
		Output:    output,
		Type:      ar.typ,
		Algorithm: ar.algo,
		BytesIn:   info.Size(),
	}
	if ar.typ == ArchiveFile {
		res.Entries = 1
		res.BytesOut, err = extractFile(ar.r, output)
	} else {
		res.Entries, res.BytesOut, err = extractDir(ar.r, output)
	}
	if err != nil {
		return nil, err
	}

	res.Message = fmt.Sprintf("Decompression successful. Decompressed file: %q", output)
	return res, nil
}

// archiveReader is an open compressed input positioned at the start of the
// decompressed payload. For directory archives the magic is still unread.
type archiveReader struct {
	f    *os.File
	zr   io.ReadCloser
	r    *bufio.Reader
	algo codec.Algorithm
	typ  ArchiveType
}

func openArchive(source string, cfg *config.Config, tracker *progress.Tracker) (*archiveReader, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	br := bufio.NewReaderSize(&progress.Reader{R: f, T: tracker}, cfg.BufferSize)
	head, _ := br.Peek(codec.MagicLen)
	algo := codec.Resolve(source, head, cfg.Algorithm)

	zr, err := codec.NewReader(algo, br)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create %s decoder: %w", algo, err)
	}

	ar := &archiveReader{
		f:    f,
		zr:   zr,
		r:    bufio.NewReaderSize(zr, cfg.BufferSize),
		algo: algo,
	}
	if ar.typ, err = detectType(ar.r, cfg.Mode); err != nil {
		ar.Close()
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return ar, nil
}

func (ar *archiveReader) Close() error {
	ar.zr.Close()
	return ar.f.Close()
}

// detectType peeks at the decompressed stream for the directory magic.
func detectType(r *bufio.Reader, mode config.Mode) (ArchiveType, error) {
	head, err := r.Peek(len(Magic))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read archive: %w", err)
	}
	isDir := bytes.Equal(head, []byte(Magic))

	switch mode {
	case config.ModeFile:
		return ArchiveFile, nil
	case config.ModeDir:
		if !isDir {
			return 0, ErrNotArchive
		}
		return ArchiveDir, nil
	default:
		if isDir {
			return ArchiveDir, nil
		}
		return ArchiveFile, nil
	}
}

// extractFile copies the whole decompressed stream into output. A partial
// output is removed on failure.
func extractFile(r io.Reader, output string) (n int64, err error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(output)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("decompress %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close output: %w", err)
	}
	return n, nil
}

// extractDir writes every entry under output. Entries are resolved through
// an os.Root so none can land outside it. On failure an output directory
// created here is removed; a pre-existing one keeps the entries completed
// before the error.
func extractDir(r *bufio.Reader, output string) (count int, total int64, err error) {
	if _, err := readArchiveHeader(r); err != nil {
		return 0, 0, err
	}
	if _, statErr := os.Lstat(output); errors.Is(statErr, fs.ErrNotExist) {
		defer func() {
			if err != nil {
				os.RemoveAll(output)
			}
		}()
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return 0, 0, fmt.Errorf("create output directory: %w", err)
	}
	root, err := os.OpenRoot(output)
	if err != nil {
		return 0, 0, fmt.Errorf("open output directory: %w", err)
	}
	defer root.Close()

	for {
		relPath, size, err := readEntryHeader(r)
		if err == io.EOF {
			return count, total, nil
		}
		if err != nil {
			return count, total, err
		}
		if err := extractEntry(root, r, relPath, size); err != nil {
			return count, total, err
		}
		count++
		total += int64(size)
	}
}

// extractEntry writes one entry, removing it again if its content is cut
// short.
func extractEntry(root *os.Root, r io.Reader, relPath string, size uint64) (err error) {
	if dir := filepath.Dir(relPath); dir != "." {
		if err := root.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir for %s: %w", relPath, err)
		}
	}
	f, err := root.Create(relPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", relPath, err)
	}
	defer func() {
		f.Close()
		if err != nil {
			root.Remove(relPath)
		}
	}()

	if err := copyContent(f, r, relPath, size); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", relPath, err)
	}
	return nil
}

// copyContent copies exactly size bytes of entry content.
func copyContent(w io.Writer, r io.Reader, relPath string, size uint64) error {
	n, err := io.CopyN(w, r, int64(size))
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: content ends after %d of %d bytes", ErrCorruptArchive, relPath, n, size)
	}
	if err != nil {
		return fmt.Errorf("copy %s: %w", relPath, err)
	}
	return nil
}

// readArchiveHeader consumes the magic and returns the root name.
func readArchiveHeader(r io.Reader) (string, error) {
	var hdr [len(Magic) + 2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", fmt.Errorf("%w: read header: %w", ErrCorruptArchive, err)
	}
	if string(hdr[:len(Magic)]) != Magic {
		return "", ErrNotArchive
	}
	rootName := make([]byte, binary.LittleEndian.Uint16(hdr[len(Magic):]))
	if _, err := io.ReadFull(r, rootName); err != nil {
		return "", fmt.Errorf("%w: read root name: %w", ErrCorruptArchive, err)
	}
	return string(rootName), nil
}

// readEntryHeader reads the path and content length of the next entry.
// It returns io.EOF only when the stream ends cleanly between entries.
func readEntryHeader(r io.Reader) (string, uint64, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:4]); err != nil {
		if err == io.EOF {
			return "", 0, io.EOF
		}
		return "", 0, fmt.Errorf("%w: read path length: %w", ErrCorruptArchive, err)
	}
	pathLen := binary.LittleEndian.Uint32(lenBuf[:4])
	if pathLen == 0 || pathLen > MaxPathLen {
		return "", 0, fmt.Errorf("%w: path length %d", ErrCorruptArchive, pathLen)
	}

	path := make([]byte, pathLen)
	if _, err := io.ReadFull(r, path); err != nil {
		return "", 0, fmt.Errorf("%w: read path: %w", ErrCorruptArchive, err)
	}
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", 0, fmt.Errorf("%w: read content length: %w", ErrCorruptArchive, err)
	}

	size := binary.LittleEndian.Uint64(lenBuf[:])
	if size > math.MaxInt64 {
		return "", 0, fmt.Errorf("%w: %q: content length %d", ErrCorruptArchive, path, size)
	}

	relPath := filepath.FromSlash(string(path))
	if !filepath.IsLocal(relPath) {
		return "", 0, fmt.Errorf("%q: %w", path, ErrUnsafePath)
	}
	return relPath, size, nil
}
