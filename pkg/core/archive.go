// Package core packs a file or directory into one compressed stream and
// reverses it.
//
// A single file is stored as its raw bytes, so the output is a plain
// compressed copy. A directory is stored as a header followed by
// length-prefixed entries:
//
//	magic    "\x89PIUS\r\n\x00"
//	rootLen  u16 LE, root name
//	entry*   pathLen u32 LE, path, contentLen u64 LE, content
//
// Entries run until the stream ends. All of it lives inside one codec frame.
package core

import (
	"fmt"

	"poius/pkg/codec"
)

// Magic marks a directory archive at the start of the decompressed stream.
const Magic = "\x89PIUS\r\n\x00"

// MaxPathLen bounds entry and root name lengths.
const MaxPathLen = 1<<16 - 1

// ArchiveType distinguishes between file and directory archives
type ArchiveType byte

const (
	ArchiveFile ArchiveType = 0 // Single file archive
	ArchiveDir  ArchiveType = 1 // Directory archive
)

func (t ArchiveType) String() string {
	switch t {
	case ArchiveFile:
		return "file"
	case ArchiveDir:
		return "dir"
	default:
		return fmt.Sprintf("ArchiveType(%d)", byte(t))
	}
}

func (t ArchiveType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ArchiveType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "file":
		*t = ArchiveFile
	case "dir":
		*t = ArchiveDir
	default:
		return fmt.Errorf("unknown archive type %q", text)
	}
	return nil
}

// Entry holds file information for compression
type Entry struct {
	RelPath  string // Relative path within the archive
	FilePath string // Full file path on disk
	Size     int64  // Content length recorded in the entry header
}

// Result describes a finished operation. A missing input is reported
// through Missing and Message rather than an error.
type Result struct {
	Source    string          `json:"source"`
	Output    string          `json:"output,omitempty"`
	Type      ArchiveType     `json:"type"`
	Algorithm codec.Algorithm `json:"algorithm,omitempty"`
	Entries   int             `json:"entries"`
	BytesIn   int64           `json:"bytes_in"`
	BytesOut  int64           `json:"bytes_out"`
	Missing   bool            `json:"missing,omitempty"`
	Message   string          `json:"message"`
}

// Manifest lists the contents of an archive.
type Manifest struct {
	Source    string          `json:"source"`
	Type      ArchiveType     `json:"type"`
	Algorithm codec.Algorithm `json:"algorithm,omitempty"`
	Root      string          `json:"root,omitempty"`
	Entries   []ManifestEntry `json:"entries"`
	Missing   bool            `json:"missing,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// ManifestEntry is one archived file. Path is empty for single-file archives.
type ManifestEntry struct {
	Path string `json:"path"`
	Size uint64 `json:"size"`
}

// NotFoundMessage is reported when the input path does not exist.
const NotFoundMessage = "File or directory not found."

func notFound(source string) *Result {
	return &Result{Source: source, Missing: true, Message: NotFoundMessage}
}
