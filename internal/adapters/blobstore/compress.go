package blobstore

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	perr "ffiassembler/internal/platform/errors"
)

// Compression names the codec a blob is stored with
type Compression string

// Supported codecs
const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a codec name; empty means none
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	case CompressionZstd:
		return CompressionZstd, nil
	}
	return "", perr.WithField(perr.InvalidArgf("unknown compression %q", s), "compression")
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressor wraps w; Close flushes the codec but leaves w open
func compressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone, "":
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	}
	return nil, perr.Contractf("unsupported compression %q", c)
}

// decompressor wraps r; Close releases codec state but leaves r open
func decompressor(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone, "":
		return io.NopCloser(r), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "zstd reader")
		}
		return d.IOReadCloser(), nil
	}
	return nil, perr.Integrityf("sidecar names unknown compression %q", c)
}
