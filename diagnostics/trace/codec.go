package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a trace file compression.
type Codec string

const (
	CodecNone   Codec = "none"
	CodecZstd   Codec = "zstd"
	CodecLZ4    Codec = "lz4"
	CodecBrotli Codec = "brotli"
)

type codecImpl struct {
	ext    string
	writer func(io.Writer) (io.WriteCloser, error)
	reader func(io.Reader) (io.ReadCloser, error)
}

var codecs = map[Codec]codecImpl{ //nolint:gochecknoglobals
	CodecNone: {
		ext: "",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return nopWriteCloser{w}, nil
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	},
	CodecZstd: {
		ext: ".zst",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}

			return dec.IOReadCloser(), nil
		},
	},
	CodecLZ4: {
		ext: ".lz4",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(lz4.NewReader(r)), nil
		},
	},
	CodecBrotli: {
		ext: ".br",
		writer: func(w io.Writer) (io.WriteCloser, error) {
			return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
		},
		reader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(brotli.NewReader(r)), nil
		},
	},
}

// ParseCodec accepts a codec name, case-insensitively. Empty means zstd.
func ParseCodec(s string) (Codec, error) {
	c := Codec(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CodecZstd, nil
	}

	if _, ok := codecs[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCodec, s)
	}

	return c, nil
}

// CodecForPath picks a codec from a file extension.
func CodecForPath(path string) (Codec, error) {
	for c, impl := range codecs {
		if impl.ext != "" && strings.HasSuffix(path, ".jsonl"+impl.ext) {
			return c, nil
		}
	}

	if strings.HasSuffix(path, ".jsonl") {
		return CodecNone, nil
	}

	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownCodec, path)
}

// Ext returns the file extension appended after ".jsonl".
func (c Codec) Ext() string {
	return codecs[c].ext
}

func (c Codec) writer(w io.Writer) (io.WriteCloser, error) {
	enc, err := codecs[c].writer(w)
	if err != nil {
		return nil, fmt.Errorf("creating %s encoder: %w", c, err)
	}

	return enc, nil
}

func (c Codec) reader(r io.Reader) (io.ReadCloser, error) {
	dec, err := codecs[c].reader(r)
	if err != nil {
		return nil, fmt.Errorf("creating %s decoder: %w", c, err)
	}

	return dec, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
