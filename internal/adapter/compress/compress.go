// Package compress writes compressed sidecars next to generated files.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec names a sidecar compression.
type Codec string

const (
	None Codec = "none"
	Gzip Codec = "gzip"
	Xz   Codec = "xz"
	Zstd Codec = "zstd"
)

var Codecs = []Codec{None, Gzip, Xz, Zstd}

// ParseCodec accepts a codec name; the empty string means None.
func ParseCodec(s string) (Codec, error) {
	switch c := Codec(strings.ToLower(s)); c {
	case "", None:
		return None, nil
	case Gzip, Xz, Zstd:
		return c, nil
	default:
		return None, fmt.Errorf("unknown compression: %s", s)
	}
}

// Ext returns the file extension of the codec's output.
func (c Codec) Ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case Xz:
		return ".xz"
	case Zstd:
		return ".zst"
	default:
		return ""
	}
}

// NewWriter wraps w. Closing the returned writer flushes the stream but
// does not close w.
func (c Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.BestCompression)
	case Xz:
		return xz.NewWriter(w)
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	case None, "":
		return nopCloser{w}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", c)
	}
}

// NewReader opens a stream written by NewWriter.
func (c Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewReader(r)
	case Xz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case None, "":
		return io.NopCloser(r), nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", c)
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Bytes compresses data in memory.
func Bytes(c Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSidecar writes data compressed to path+ext. It returns the sidecar
// path, or "" for None.
func WriteSidecar(path string, data []byte, c Codec) (string, error) {
	if c == None || c == "" {
		return "", nil
	}
	out, err := Bytes(c, data)
	if err != nil {
		return "", fmt.Errorf("failed to compress %s: %w", path, err)
	}
	sidecar := path + c.Ext()
	if err := os.WriteFile(sidecar, out, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", sidecar, err)
	}
	return sidecar, nil
}
