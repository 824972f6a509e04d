// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protostream

import (
	"io"

	"github.com/golang/protobuf/proto"
)

// Encoder encodes a protobuf message stream to an io.Writer.
//
// Each message is preceded by its size, encoded as a varint.
type Encoder struct {
	buf *proto.Buffer
}

// Write writes pb to w, returning the number of bytes written.
func (e *Encoder) Write(w io.Writer, pb proto.Message) (int, error) {
	if e.buf == nil {
		e.buf = proto.NewBuffer(nil)
	} else {
		e.buf.Reset()
	}

	if err := e.buf.EncodeVarint(uint64(proto.Size(pb))); err != nil {
		return 0, err
	}
	if err := e.buf.Marshal(pb); err != nil {
		return 0, err
	}
	return w.Write(e.buf.Bytes())
}
