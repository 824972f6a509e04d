// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package eventfile

import (
	"bufio"
	"compress/gzip"
	"io"

	"github.com/gpittarelli/godemo/support/dataio"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// streamBufferSize is the buffer size used for event file I/O.
const streamBufferSize = 1024 * 256

// rawStreamReader reads an event file's (possibly compressed) record stream.
type rawStreamReader struct {
	dataio.Reader

	br    *bufio.Reader
	gzipR *gzip.Reader
}

func newRawStreamReader(base io.Reader) *rawStreamReader {
	r := rawStreamReader{
		br: bufio.NewReaderSize(base, streamBufferSize),
	}
	r.Reader = r.br
	return &r
}

// beginDecompression switches r to reading records compressed with comp.
// Anything read before this is read raw.
func (r *rawStreamReader) beginDecompression(comp Compression) error {
	switch comp {
	case CompressionSnappy:
		r.Reader = bufio.NewReaderSize(snappy.NewReader(r.br), streamBufferSize)

	case CompressionGzip:
		gz, err := gzip.NewReader(r.br)
		if err != nil {
			return errors.Wrap(err, "creating gzip reader")
		}
		r.gzipR = gz
		r.Reader = bufio.NewReaderSize(gz, streamBufferSize)

	case CompressionNone:
		r.Reader = r.br

	default:
		return errors.Errorf("unknown compression: %s", comp)
	}
	return nil
}

func (r *rawStreamReader) Close() error {
	if r.gzipR != nil {
		return r.gzipR.Close()
	}
	return nil
}

// rawStreamWriter writes an event file's (possibly compressed) record stream.
type rawStreamWriter struct {
	dataio.Writer

	closer  io.Closer
	bw      *bufio.Writer
	snappyW *snappy.Writer
	gzipW   *gzip.Writer
}

func newRawStreamWriter(base io.WriteCloser) *rawStreamWriter {
	w := rawStreamWriter{
		bw:     bufio.NewWriterSize(base, streamBufferSize),
		closer: base,
	}
	w.Writer = w.bw
	return &w
}

// beginCompression switches w to writing records compressed with comp.
// Anything written before this is written raw.
func (w *rawStreamWriter) beginCompression(comp Compression, level int) error {
	switch comp {
	case CompressionSnappy:
		w.snappyW = snappy.NewBufferedWriter(w.bw)
		w.Writer = dataio.MakeWriter(w.snappyW)

	case CompressionGzip:
		if level < 0 {
			level = gzip.DefaultCompression
		}

		gw, err := gzip.NewWriterLevel(w.bw, level)
		if err != nil {
			return errors.Wrap(err, "creating gzip writer")
		}
		w.gzipW = gw
		w.Writer = dataio.MakeWriter(w.gzipW)

	case CompressionNone:
		w.Writer = w.bw

	default:
		return errors.Errorf("unknown compression: %s", comp)
	}
	return nil
}

// Close flushes w and closes its base.
func (w *rawStreamWriter) Close() (err error) {
	// Always close our underlying base.
	defer func() {
		closeErr := w.closer.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if w.snappyW != nil {
		if err = w.snappyW.Close(); err != nil {
			return
		}
	}
	if w.gzipW != nil {
		if err = w.gzipW.Close(); err != nil {
			return
		}
	}
	err = w.bw.Flush()
	return
}
