// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package eventfile exports the events of a demo stream to a file, and reads
// them back.
//
// An event file begins with a preamble: an 8-byte magic string followed by a
// single byte naming the Compression of the rest of the file. The remainder
// is a protostream of google.protobuf.Struct records, one per event, as
// produced by Encode.
package eventfile

import (
	"io"
	"os"

	"github.com/gpittarelli/godemo/protocol/message"
	"github.com/gpittarelli/godemo/support/dataio"
	"github.com/gpittarelli/godemo/support/protostream"
	"github.com/gpittarelli/godemo/support/stagingfile"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// fileMagic begins every event file.
const fileMagic = "DEMOEVT\x01"

// ErrInvalidFile is returned when a file is not an event file.
var ErrInvalidFile = errors.New("not an event file")

// Config configures a Writer.
type Config struct {
	// Compression is the compression to apply to records.
	Compression Compression
	// CompressionLevel is the gzip compression level. If negative, the default
	// level is used.
	CompressionLevel int

	// TempDir is the directory to stage the file in. If empty, the file is
	// staged alongside its destination.
	TempDir string
}

// Writer writes events to an event file.
//
// The file is staged while it is being written, and appears at its
// destination only once Close succeeds.
//
// Writer implements parser.Sink. It is not safe for concurrent use.
type Writer struct {
	sf  *stagingfile.F
	w   *rawStreamWriter
	enc protostream.Encoder

	numEvents int64
	numBytes  int64
}

// Create begins writing an event file to path.
func (cfg *Config) Create(path string) (*Writer, error) {
	sf, err := stagingfile.New(cfg.TempDir, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Cleanup if we failed to complete our creation.
		if sf != nil {
			_ = sf.Destroy()
		}
	}()

	w := newRawStreamWriter(sf)
	if _, err := io.WriteString(w, fileMagic); err != nil {
		return nil, errors.Wrap(err, "writing magic")
	}
	if err := w.WriteByte(byte(cfg.Compression)); err != nil {
		return nil, errors.Wrap(err, "writing compression")
	}
	if err := w.beginCompression(cfg.Compression, cfg.CompressionLevel); err != nil {
		return nil, errors.Wrap(err, "enabling compression")
	}

	ew := Writer{
		sf: sf,
		w:  w,
	}
	sf = nil // Owned by ew.
	return &ew, nil
}

// Path returns the destination path of the file being written.
func (ew *Writer) Path() string { return ew.sf.Dest() }

// NumEvents is the number of events that have been written so far.
func (ew *Writer) NumEvents() int64 { return ew.numEvents }

// NumBytes is the number of record bytes that have been written so far,
// before compression.
func (ew *Writer) NumBytes() int64 { return ew.numBytes }

// HandleEvent writes ev to the file.
func (ew *Writer) HandleEvent(ev message.Event) error {
	st, err := Encode(ev)
	if err != nil {
		return err
	}

	amt, err := ew.enc.Write(ew.w, st)
	ew.numBytes += int64(amt)
	if err != nil {
		return errors.Wrap(err, "writing event")
	}
	ew.numEvents++
	return nil
}

// Close finishes the file and moves it to its destination.
//
// If Close fails, the staged file is deleted.
func (ew *Writer) Close() error {
	if err := ew.w.Close(); err != nil {
		_ = ew.sf.Destroy()
		return errors.Wrap(err, "closing event file")
	}
	if err := ew.sf.Commit(); err != nil {
		_ = ew.sf.Destroy()
		return err
	}
	return nil
}

// Abort discards the file.
func (ew *Writer) Abort() error {
	_ = ew.w.Close()
	return ew.sf.Destroy()
}

// Reader reads events from an event file.
type Reader struct {
	fd  *os.File
	r   *rawStreamReader
	dec protostream.Decoder

	compression Compression
}

// Open opens the event file at path.
func Open(path string) (*Reader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	er, err := NewReader(fd)
	if err != nil {
		_ = fd.Close()
		return nil, err
	}
	er.fd = fd
	return er, nil
}

// NewReader reads an event file from r.
func NewReader(r io.Reader) (*Reader, error) {
	rr := newRawStreamReader(r)

	var preamble [len(fileMagic) + 1]byte
	if err := dataio.ReadFull(rr, preamble[:]); err != nil {
		return nil, errors.Wrap(err, "reading preamble")
	}
	if string(preamble[:len(fileMagic)]) != fileMagic {
		return nil, ErrInvalidFile
	}

	comp := Compression(preamble[len(fileMagic)])
	if err := rr.beginDecompression(comp); err != nil {
		return nil, err
	}
	return &Reader{
		r:           rr,
		compression: comp,
	}, nil
}

// Compression returns the file's compression.
func (er *Reader) Compression() Compression { return er.compression }

// ReadEvent reads the next event record. At the end of the file, it returns
// io.EOF.
func (er *Reader) ReadEvent() (*structpb.Struct, error) {
	var st structpb.Struct
	if _, err := er.dec.Read(er.r, &st); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "reading event")
	}
	return &st, nil
}

// Close closes the Reader.
func (er *Reader) Close() error {
	err := er.r.Close()
	if er.fd != nil {
		if closeErr := er.fd.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
