// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package dataio adapts plain readers and writers to byte-oriented ones.
package dataio

import (
	"io"
)

// Reader can read both individual bytes and sequences of bytes.
type Reader interface {
	io.Reader
	io.ByteReader
}

// Writer can write both individual bytes and sequences of bytes.
type Writer interface {
	io.Writer
	io.ByteWriter
}

// MakeReader returns r as a Reader, wrapping it if it cannot read
// individual bytes.
//
// The wrapper issues a one-byte Read per ReadByte, so r should be buffered.
func MakeReader(r io.Reader) Reader {
	if dr, ok := r.(Reader); ok {
		return dr
	}
	return &byteReader{r}
}

// MakeWriter returns w as a Writer, wrapping it if it cannot write
// individual bytes.
func MakeWriter(w io.Writer) Writer {
	if dw, ok := w.(Writer); ok {
		return dw
	}
	return &byteWriter{w}
}

type byteReader struct {
	io.Reader
}

func (r *byteReader) ReadByte() (byte, error) {
	var d [1]byte
	for {
		switch amt, err := r.Read(d[:]); {
		case amt == 1:
			return d[0], nil
		case err != nil:
			return 0, err
		}
		// A zero-byte read with no error; try again.
	}
}

type byteWriter struct {
	io.Writer
}

func (w *byteWriter) WriteByte(c byte) error {
	d := [1]byte{c}
	switch amt, err := w.Write(d[:]); {
	case err != nil:
		return err
	case amt != 1:
		return io.ErrShortWrite
	default:
		return nil
	}
}

// ReadFull reads len(buf) bytes from r.
//
// Unlike io.ReadFull, any short read is reported as io.ErrUnexpectedEOF, even
// if nothing was read.
func ReadFull(r io.Reader, buf []byte) error {
	switch _, err := io.ReadFull(r, buf); err {
	case io.EOF:
		return io.ErrUnexpectedEOF
	default:
		return err
	}
}
