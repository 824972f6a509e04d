// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"github.com/pkg/errors"
)

var (
	// ErrMalformedHeader is returned when the demo header could not be read.
	ErrMalformedHeader = errors.New("malformed demo header")

	// ErrTruncatedFrame is returned when a frame's metadata or payload extends
	// past the end of the buffer.
	ErrTruncatedFrame = errors.New("truncated frame")

	// ErrUnknownFrameType is returned when a frame carries a type tag whose
	// layout is unknown, making further framing impossible.
	ErrUnknownFrameType = errors.New("unknown frame type")
)
