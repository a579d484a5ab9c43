package codec

import (
	"bytes"
	"fmt"
	"io"
)

// CompressBytes compresses data into one self-contained frame using a
// fresh encoder.
func CompressBytes(data []byte, algo Algorithm, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := NewWriter(algo, &buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("%s encode: %w", algo, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%s finish: %w", algo, err)
	}
	return buf.Bytes(), nil
}

// DecompressBytes decodes a frame produced by CompressBytes. A positive
// limit caps the decoded size; a frame expanding past it fails with
// ErrFrameTooLarge before more than limit+1 bytes are buffered.
func DecompressBytes(frame []byte, algo Algorithm, limit int64) ([]byte, error) {
	zr, err := NewReader(algo, bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var src io.Reader = zr
	if limit > 0 {
		src = io.LimitReader(zr, limit+1)
	}
	var out bytes.Buffer
	n, err := out.ReadFrom(src)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", algo, err)
	}
	if limit > 0 && n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, limit)
	}
	return out.Bytes(), nil
}
