// Package chunked compresses one large file as independent frames, one per
// fixed-size chunk, encoded in parallel.
//
// Layout, all integers little-endian:
//
//	repeat per chunk, in order:
//	  frameLen u32
//	  frame    one self-contained codec frame
//	footer     u64 original file size
//
// An empty source has no chunks and is the footer alone.
package chunked

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"poius/pkg/codec"
	"poius/pkg/config"
	"poius/pkg/core"
	"poius/pkg/progress"
)

const (
	FooterSize = 8
	PrefixSize = 4
)

// Result describes a finished chunked operation.
type Result struct {
	Source         string          `json:"source"`
	Output         string          `json:"output,omitempty"`
	Algorithm      codec.Algorithm `json:"algorithm,omitempty"`
	Chunks         int             `json:"chunks"`
	Workers        int             `json:"workers"`
	OriginalSize   int64           `json:"original_size"`
	CompressedSize int64           `json:"compressed_size"`
	Missing        bool            `json:"missing,omitempty"`
	Message        string          `json:"message"`
}

// ChunkCount returns how many chunks of chunkSize cover size bytes.
func ChunkCount(size, chunkSize int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Compress splits src into cfg.ChunkSize chunks and compresses each in its
// own goroutine. cfg.Workers > 0 bounds how many run at once. An empty dst
// selects core.EncodedPath(src).
func Compress(ctx context.Context, src, dst string, cfg *config.Config) (*Result, error) {
	cfg = config.OrDefault(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source, info, res, err := statSource(src)
	if res != nil || err != nil {
		return res, err
	}
	if dst == "" {
		dst = core.EncodedPath(source, cfg.Algorithm)
	}
	if err := checkOutput(source, dst); err != nil {
		return nil, err
	}

	size := info.Size()
	k := ChunkCount(size, cfg.ChunkSize)

	tracker := progress.New(cfg.Progress, uint64(size))
	tracker.Start()
	defer tracker.Stop()

	frames := make([][]byte, k)
	var workers atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i := range k {
		g.Go(func() error {
			workers.Add(1)
			if err := gctx.Err(); err != nil {
				return err
			}
			off := int64(i) * cfg.ChunkSize
			n := min(cfg.ChunkSize, size-off)
			frame, err := compressChunk(source, off, n, cfg)
			if err != nil {
				return fmt.Errorf("compress chunk %d: %w", i, err)
			}
			frames[i] = frame
			tracker.Add(uint64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	written, err := writeFrames(dst, frames, uint64(size), cfg.BufferSize)
	if err != nil {
		return nil, err
	}
	return &Result{
		Source:         source,
		Output:         dst,
		Algorithm:      cfg.Algorithm,
		Chunks:         k,
		Workers:        int(workers.Load()),
		OriginalSize:   size,
		CompressedSize: written,
		Message:        fmt.Sprintf("Compression successful. Compressed file: %q", dst),
	}, nil
}

// compressChunk reads n bytes at off through its own handle and encodes
// them as one frame.
func compressChunk(path string, off, n int64, cfg *config.Config) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	buf := make([]byte, n)
	if read, err := f.ReadAt(buf, off); int64(read) != n {
		if err == nil || errors.Is(err, io.EOF) {
			err = core.ErrSizeChanged
		}
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, off, err)
	}
	return codec.CompressBytes(buf, cfg.Algorithm, cfg.Level)
}

// writeFrames writes the length-prefixed frames in order, then the footer.
// A partial output is removed on failure.
func writeFrames(dst string, frames [][]byte, size uint64, bufSize int) (written int64, err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(dst)
		}
	}()

	bw := bufio.NewWriterSize(f, bufSize)
	var prefix [FooterSize]byte
	for i, frame := range frames {
		if uint64(len(frame)) > math.MaxUint32 {
			return 0, fmt.Errorf("chunk %d: frame of %d bytes does not fit its prefix", i, len(frame))
		}
		binary.LittleEndian.PutUint32(prefix[:PrefixSize], uint32(len(frame)))
		if _, err := bw.Write(prefix[:PrefixSize]); err != nil {
			return 0, fmt.Errorf("write chunk %d: %w", i, err)
		}
		if _, err := bw.Write(frame); err != nil {
			return 0, fmt.Errorf("write chunk %d: %w", i, err)
		}
		written += int64(PrefixSize + len(frame))
	}

	binary.LittleEndian.PutUint64(prefix[:], size)
	if _, err := bw.Write(prefix[:]); err != nil {
		return 0, fmt.Errorf("write footer: %w", err)
	}
	written += FooterSize

	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	return written, nil
}

// span locates one frame inside a chunked file.
type span struct {
	off int64
	n   int64
}

// Decompress reverses Compress. Frames are decoded concurrently with at
// most one window of chunks in flight, and each is written in order as soon
// as its predecessors are. The window is cfg.Workers, or the CPU count when
// that is 0. An empty dst selects core.DecodedPath(src).
func Decompress(ctx context.Context, src, dst string, cfg *config.Config) (*Result, error) {
	cfg = config.OrDefault(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	source, info, res, err := statSource(src)
	if res != nil || err != nil {
		return res, err
	}
	if dst == "" {
		dst = core.DecodedPath(source)
	}
	if err := checkOutput(source, dst); err != nil {
		return nil, err
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	total, err := readFooter(f, info.Size())
	if err != nil {
		return nil, err
	}
	spans, err := scanFrames(f, info.Size()-FooterSize)
	if err != nil {
		return nil, err
	}
	// Every chunk holds at least one byte.
	if uint64(len(spans)) > total {
		return nil, fmt.Errorf("%w: footer says %d bytes for %d chunks", ErrSizeMismatch, total, len(spans))
	}

	tracker := progress.New(cfg.Progress, uint64(info.Size()))
	tracker.Start()
	defer tracker.Stop()

	d := &decoder{
		source:  source,
		spans:   spans,
		algo:    detectAlgorithm(f, source, spans, cfg.Algorithm),
		total:   total,
		limit:   chunkLimit(total, len(spans)),
		window:  cfg.Workers,
		tracker: tracker,
	}
	if d.window <= 0 {
		d.window = runtime.NumCPU()
	}
	workers, err := d.decodeTo(ctx, dst, cfg.BufferSize)
	if err != nil {
		return nil, err
	}

	return &Result{
		Source:         source,
		Output:         dst,
		Algorithm:      d.algo,
		Chunks:         len(spans),
		Workers:        workers,
		OriginalSize:   int64(total),
		CompressedSize: info.Size(),
		Message:        fmt.Sprintf("Decompression successful. Decompressed file: %q", dst),
	}, nil
}

// chunkLimit bounds what one frame may decode to. Every chunk but the last
// holds the full chunk size and together they stay below total, so none
// exceeds total/(k-1).
func chunkLimit(total uint64, k int) int64 {
	limit := total
	if k > 1 {
		limit = total / uint64(k-1)
	}
	return int64(min(limit, config.MaxChunkSize))
}

// errAborted reports that the writer stopped because the group failed.
var errAborted = errors.New("chunked: decode aborted")

// decoder streams the chunks of one file to its output.
type decoder struct {
	source  string
	spans   []span
	algo    codec.Algorithm
	total   uint64
	limit   int64
	window  int
	tracker *progress.Tracker
}

// decodeTo writes the decoded chunks to dst and returns how many workers
// ran. A slot is taken before a chunk starts decoding and released once it
// is written, so at most window chunks are held at a time. A partial output
// is removed on failure.
func (d *decoder) decodeTo(ctx context.Context, dst string, bufSize int) (workers int, err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(dst)
		}
	}()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)

	slots := make(chan struct{}, d.window)
	results := make([]chan []byte, len(d.spans))
	for i := range results {
		results[i] = make(chan []byte, 1)
	}
	var started atomic.Int64

	g.Go(func() error {
		for i, s := range d.spans {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				started.Add(1)
				data, err := decompressChunk(d.source, s, d.algo, d.limit)
				if errors.Is(err, codec.ErrFrameTooLarge) {
					return fmt.Errorf("%w: chunk %d: %w", ErrSizeMismatch, i, err)
				}
				if err != nil {
					return fmt.Errorf("decompress chunk %d: %w", i, err)
				}
				results[i] <- data
				d.tracker.Add(uint64(PrefixSize + s.n))
				return nil
			})
		}
		return nil
	})

	bw := bufio.NewWriterSize(f, bufSize)
	written, werr := d.writeInOrder(gctx, bw, results, slots)
	if werr != nil && werr != errAborted {
		cancel()
	}
	gerr := g.Wait()
	switch {
	case werr != nil && werr != errAborted:
		return 0, werr
	case gerr != nil:
		return 0, gerr
	case werr == errAborted:
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, werr
	}

	if written != d.total {
		return 0, fmt.Errorf("%w: footer says %d, chunks hold %d", ErrSizeMismatch, d.total, written)
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}
	return int(started.Load()), nil
}

// writeInOrder writes each chunk once it and every chunk before it are
// decoded, freeing its slot afterwards.
func (d *decoder) writeInOrder(ctx context.Context, w io.Writer, results []chan []byte, slots <-chan struct{}) (uint64, error) {
	var written uint64
	for i, ch := range results {
		var data []byte
		select {
		case data = <-ch:
		case <-ctx.Done():
			return written, errAborted
		}
		written += uint64(len(data))
		if written > d.total {
			return written, fmt.Errorf("%w: chunk %d runs past the footer size %d", ErrSizeMismatch, i, d.total)
		}
		if _, err := w.Write(data); err != nil {
			return written, fmt.Errorf("write chunk %d: %w", i, err)
		}
		<-slots
	}
	return written, nil
}

func readFooter(r io.ReaderAt, size int64) (uint64, error) {
	if size < FooterSize {
		return 0, fmt.Errorf("%w: file is %d bytes", ErrCorruptFooter, size)
	}
	var buf [FooterSize]byte
	if _, err := r.ReadAt(buf[:], size-FooterSize); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read footer: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// scanFrames walks the length prefixes in [0, end).
func scanFrames(r io.ReaderAt, end int64) ([]span, error) {
	var spans []span
	var prefix [PrefixSize]byte
	for off := int64(0); off < end; {
		if off+PrefixSize > end {
			return nil, fmt.Errorf("%w: prefix at offset %d", ErrCorruptChunk, off)
		}
		if _, err := r.ReadAt(prefix[:], off); err != nil {
			return nil, fmt.Errorf("read chunk prefix at %d: %w", off, err)
		}
		n := int64(binary.LittleEndian.Uint32(prefix[:]))
		off += PrefixSize
		if off+n > end {
			return nil, fmt.Errorf("%w: chunk %d at offset %d needs %d bytes, %d remain",
				ErrCorruptChunk, len(spans), off, n, end-off)
		}
		spans = append(spans, span{off: off, n: n})
		off += n
	}
	return spans, nil
}

// detectAlgorithm sniffs the first frame, falling back to the file name
// and then to fallback.
func detectAlgorithm(r io.ReaderAt, name string, spans []span, fallback codec.Algorithm) codec.Algorithm {
	var head []byte
	if len(spans) > 0 {
		head = make([]byte, min(int64(codec.MagicLen), spans[0].n))
		if _, err := r.ReadAt(head, spans[0].off); err != nil {
			head = nil
		}
	}
	return codec.Resolve(name, head, fallback)
}

func decompressChunk(path string, s span, algo codec.Algorithm, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	frame := make([]byte, s.n)
	if _, err := f.ReadAt(frame, s.off); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read frame at %d: %w", s.off, err)
	}
	return codec.DecompressBytes(frame, algo, limit)
}

// statSource returns a not-found Result for a missing source and rejects
// anything but a regular file.
func statSource(src string) (string, fs.FileInfo, *Result, error) {
	source := filepath.Clean(src)
	info, err := os.Stat(source)
	if errors.Is(err, fs.ErrNotExist) {
		return source, nil, &Result{Source: source, Missing: true, Message: core.NotFoundMessage}, nil
	}
	if err != nil {
		return source, nil, nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return source, nil, nil, fmt.Errorf("%s: %w", source, ErrNotRegularFile)
	}
	return source, info, nil, nil
}

func checkOutput(source, dst string) error {
	a, errA := filepath.Abs(source)
	b, errB := filepath.Abs(dst)
	if errA == nil && errB == nil && a == b {
		return fmt.Errorf("%s: %w", source, core.ErrOutputIsInput)
	}
	return nil
}
