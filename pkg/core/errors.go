package core

import "errors"

// Sentinel errors for programmatic handling with errors.Is.
var (
	ErrNotArchive     = errors.New("not a directory archive")
	ErrCorruptArchive = errors.New("corrupt archive")
	ErrUnsafePath     = errors.New("entry path escapes destination")
	ErrSizeChanged    = errors.New("file changed size while archiving")
	ErrPathTooLong    = errors.New("path exceeds maximum length")
	ErrOutputIsInput  = errors.New("output path is the input path")
)
