package blobstore

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// Every stored file starts with one marker byte naming its compression, so a store
// stays readable after the configured compression changes.
const (
	markerNone byte = iota
	markerZstd
	markerLZ4
)

func markerFor(c domain.Compression) (byte, error) {
	switch c {
	case domain.CompressionNone:
		return markerNone, nil
	case "", domain.CompressionZstd:
		return markerZstd, nil
	case domain.CompressionLZ4:
		return markerLZ4, nil
	default:
		return 0, zerr.With(domain.ErrUnknownCompression, "compression", string(c))
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// compressWriter wraps w with the encoder for marker. Close flushes the encoder but
// does not close w.
func compressWriter(marker byte, w io.Writer) (io.WriteCloser, error) {
	switch marker {
	case markerZstd:
		enc, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, zerr.Wrap(err, "zstd encoder initialization failed")
		}
		return enc, nil
	case markerLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type decompressReader struct {
	io.Reader
	closeFn func()
}

func (d *decompressReader) Close() error {
	if d.closeFn != nil {
		d.closeFn()
	}
	return nil
}

// decompressReader wraps r with the decoder for marker.
func newDecompressReader(marker byte, r io.Reader) (io.ReadCloser, error) {
	switch marker {
	case markerNone:
		return io.NopCloser(r), nil
	case markerZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, zerr.Wrap(err, "zstd decoder initialization failed")
		}
		return &decompressReader{Reader: dec, closeFn: dec.Close}, nil
	case markerLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, zerr.With(domain.ErrUnknownCompression, "marker", marker)
	}
}
