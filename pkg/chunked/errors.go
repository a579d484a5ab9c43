package chunked

import "errors"

var (
	ErrCorruptFooter  = errors.New("chunked: missing or truncated size footer")
	ErrCorruptChunk   = errors.New("chunked: chunk frame runs past the footer")
	ErrSizeMismatch   = errors.New("chunked: decoded size does not match footer")
	ErrNotRegularFile = errors.New("chunked: source is not a regular file")
)
