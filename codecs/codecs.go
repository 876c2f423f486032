// Package codecs provides compression codecs used to frame persisted logs
// and content blobs.
package codecs

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Codec enumerates the supported compression codecs.
type Codec byte

const (
	None Codec = iota
	Gzip
	Snappy
	Zstandard
)

// String returns the codec's name.
func (c Codec) String() string {
	switch c {
	case None:
		return "NONE"
	case Gzip:
		return "GZIP"
	case Snappy:
		return "SNAPPY"
	case Zstandard:
		return "ZSTANDARD"
	default:
		return fmt.Sprintf("Codec(%d)", c)
	}
}

// Validate returns an error if the Codec is not a known value.
func (c Codec) Validate() error {
	if c > Zstandard {
		return fmt.Errorf("unsupported codec %s", c.String())
	}
	return nil
}

// Decompressor is a ReadCloser where Close closes and releases Decompressor
// state, but does not Close or affect the underlying Reader.
type Decompressor io.ReadCloser

// Compressor is a WriteCloser where Close closes and releases Compressor
// state, potentially flushing final content to the underlying Writer,
// but does not Close or otherwise affect the underlying Writer.
type Compressor io.WriteCloser

// NewCodecReader returns a Decompressor of the Reader encoded with Codec.
func NewCodecReader(r io.Reader, codec Codec) (Decompressor, error) {
	switch codec {
	case None:
		return ioutil.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Snappy:
		return ioutil.NopCloser(snappy.NewReader(r)), nil
	case Zstandard:
		return zstdNewReader(r)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec.String())
	}
}

// NewCodecWriter returns a Compressor wrapping the Writer encoding with Codec.
func NewCodecWriter(w io.Writer, codec Codec) (Compressor, error) {
	switch codec {
	case None:
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriter(w), nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case Zstandard:
		return zstdNewWriter(w)
	default:
		return nil, fmt.Errorf("unsupported codec %s", codec.String())
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

var (
	zstdNewReader = func(io.Reader) (io.ReadCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
	zstdNewWriter = func(io.Writer) (io.WriteCloser, error) {
		return nil, fmt.Errorf("ZSTANDARD was not enabled at compile time")
	}
)
