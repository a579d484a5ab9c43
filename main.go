package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	json "github.com/goccy/go-json"

	"poius/lib"
	"poius/pkg/codec"
	"poius/pkg/config"
	"poius/pkg/output"
)

const (
	owner     = "Aly Ahmed Aly"
	githubURL = "https://github.com/King-Masr/Poius"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options holds the parsed command line.
type options struct {
	cfg      *config.Config
	log      *output.Logger
	jsonOut  bool
	progress bool
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("poius", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	var (
		algo      = fs.String("algo", string(codec.Zstd), "compression algorithm: zstd, lz4, gzip, brotli, snappy")
		level     = fs.Int("level", 0, "compression level, 0 for the algorithm default")
		recursive = fs.Bool("r", false, "archive subdirectories too")
		mode      = fs.String("mode", string(config.ModeAuto), "decompress as auto, file or dir")
		workers   = fs.Int("workers", 0, "max concurrent chunk workers, 0 for one per chunk")
		chunkSize = fs.Int64("chunk-size", config.DefaultChunkSize, "chunk size in bytes for chunk")
		preset    = fs.String("preset", "", "settings preset: default, fastest, best, compatible")
		cfgPath   = fs.String("config", "", "JSON config file")
		jsonOut   = fs.Bool("json", false, "print results as JSON")
		quiet     = fs.Bool("q", false, "only print errors")
		verbose   = fs.Bool("v", false, "print details")
		debug     = fs.Bool("debug", false, "print debug information")
		showProg  = fs.Bool("progress", false, "report throughput while working")
	)

	// Flags may appear anywhere between the positional arguments.
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return 1
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	var command string
	var rest []string
	if len(positional) > 0 {
		command, rest = positional[0], positional[1:]
	}

	log := &output.Logger{Level: output.LevelFromFlags(*quiet, *verbose, *debug), Out: stdout, Err: stderr}

	switch command {
	case "":
		printWelcome(stdout)
		return 0
	case "help":
		printUsage(stdout)
		return 0
	case "compress", "decompress", "chunk", "unchunk", "list":
	default:
		log.Errorf("Invalid command. Use 'compress', 'decompress', 'chunk', 'unchunk', 'list', or 'help'.\n")
		return 1
	}

	if len(rest) == 0 || rest[0] == "" {
		log.Errorf("File or directory path not provided.\n")
		return 1
	}

	cfg, err := loadConfig(*cfgPath, *preset)
	if err != nil {
		log.Errorf("Error: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "algo":
			cfg.Algorithm = codec.Algorithm(*algo)
		case "level":
			cfg.Level = *level
		case "r":
			cfg.Recursive = *recursive
		case "mode":
			cfg.Mode = config.Mode(*mode)
		case "workers":
			cfg.Workers = *workers
		case "chunk-size":
			cfg.ChunkSize = *chunkSize
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Errorf("Error: %v\n", err)
		return 1
	}

	opts := &options{cfg: cfg, log: log, jsonOut: *jsonOut, progress: *showProg}
	if opts.progress {
		cfg.Progress = log.Progress()
	}
	log.Debugf("Available CPU cores: %d\n", runtime.NumCPU())
	log.Debugf("Settings: algorithm=%s level=%d mode=%s chunk=%d workers=%d\n",
		cfg.Algorithm, cfg.Level, cfg.Mode, cfg.ChunkSize, cfg.Workers)

	input := rest[0]
	dest := ""
	if len(rest) > 1 {
		dest = rest[1]
	}

	switch command {
	case "compress":
		err = handleCompress(opts, input, dest)
	case "decompress":
		err = handleDecompress(opts, input, dest)
	case "chunk":
		err = handleChunk(ctx, opts, input, dest)
	case "unchunk":
		err = handleUnchunk(ctx, opts, input, dest)
	case "list":
		err = handleList(opts, input)
	}
	if err != nil {
		log.Errorf("Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig starts from the config file or preset, else the defaults.
func loadConfig(path, preset string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if preset != "" {
		cfg, ok := config.Preset(preset)
		if !ok {
			return nil, fmt.Errorf("%w: unknown preset %q", config.ErrInvalidConfig, preset)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func printWelcome(w io.Writer) {
	fmt.Fprintf(w, "Welcome to poius CLI by %s.\n", owner)
	printUsage(w)
}

// printUsage prints the command-line usage information
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: poius [flags] <command> <path> [destination]")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  compress <file/dir>: Compress a file or directory")
	fmt.Fprintln(w, "  decompress <file/dir>: Decompress a file or directory")
	fmt.Fprintln(w, "  chunk <file>: Compress a large file in parallel chunks")
	fmt.Fprintln(w, "  unchunk <file>: Decompress a chunked file")
	fmt.Fprintln(w, "  list <archive>: Show the contents of an archive")
	fmt.Fprintln(w, "  help: Display this help message")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -algo name  -level n  -r  -mode auto|file|dir  -workers n  -chunk-size bytes")
	fmt.Fprintln(w, "  -preset name  -config file.json  -json  -q  -v  -debug  -progress")
	fmt.Fprintf(w, "For more information, visit %s\n", githubURL)
}

// report prints v as JSON, or message followed by the verbose details.
func (o *options) report(v any, message string, details func()) error {
	if o.jsonOut {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(o.log.Out, string(data))
		return nil
	}
	o.log.Infof("%s\n", message)
	if details != nil && o.log.Enabled(output.Verbose) {
		details()
	}
	return nil
}

// handleCompress handles the compression operation
func handleCompress(o *options, input, dest string) error {
	res, err := lib.Compress(input, dest, o.cfg)
	if err != nil {
		return err
	}
	return o.report(res, res.Message, func() {
		o.log.Verbosef("Type: %s, entries: %d, algorithm: %s\n", res.Type, res.Entries, res.Algorithm)
		o.log.Verbosef("Size: %d -> %d bytes (%s)\n", res.BytesIn, res.BytesOut, ratio(res.BytesOut, res.BytesIn))
	})
}

// handleDecompress handles the decompression operation
func handleDecompress(o *options, input, dest string) error {
	res, err := lib.Decompress(input, dest, o.cfg)
	if err != nil {
		return err
	}
	return o.report(res, res.Message, func() {
		o.log.Verbosef("Type: %s, entries: %d, algorithm: %s\n", res.Type, res.Entries, res.Algorithm)
		o.log.Verbosef("Size: %d -> %d bytes\n", res.BytesIn, res.BytesOut)
	})
}

func handleChunk(ctx context.Context, o *options, input, dest string) error {
	res, err := lib.CompressChunked(ctx, input, dest, o.cfg)
	if err != nil {
		return err
	}
	return o.report(res, res.Message, func() {
		o.log.Verbosef("Chunks: %d, workers: %d, algorithm: %s\n", res.Chunks, res.Workers, res.Algorithm)
		o.log.Verbosef("Size: %d -> %d bytes (%s)\n", res.OriginalSize, res.CompressedSize,
			ratio(res.CompressedSize, res.OriginalSize))
	})
}

func handleUnchunk(ctx context.Context, o *options, input, dest string) error {
	res, err := lib.DecompressChunked(ctx, input, dest, o.cfg)
	if err != nil {
		return err
	}
	return o.report(res, res.Message, func() {
		o.log.Verbosef("Chunks: %d, workers: %d, algorithm: %s\n", res.Chunks, res.Workers, res.Algorithm)
	})
}

func handleList(o *options, input string) error {
	m, err := lib.List(input, o.cfg)
	if err != nil {
		return err
	}
	if m.Missing {
		return o.report(m, m.Message, nil)
	}
	if o.jsonOut {
		return o.report(m, "", nil)
	}
	o.log.Infof("%s: %s archive (%s)\n", m.Source, m.Type, m.Algorithm)
	if m.Root != "" {
		o.log.Infof("Root: %s\n", m.Root)
	}
	var total uint64
	for _, e := range m.Entries {
		name := e.Path
		if name == "" {
			name = "(file content)"
		}
		o.log.Infof("%12d  %q\n", e.Size, name)
		total += e.Size
	}
	o.log.Infof("%d entries, %d bytes\n", len(m.Entries), total)
	return nil
}

func ratio(out, in int64) string {
	if in == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", float64(out)/float64(in)*100)
}
