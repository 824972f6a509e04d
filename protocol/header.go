// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"fmt"
	"io"
	"time"

	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// HeaderSize is the size, in bytes, of the fixed demo file header.
	HeaderSize = 1072

	// HeaderMagic is the magic value observed in the Type field of Source
	// engine demo files.
	HeaderMagic = "HL2DEMO"

	// headerStringSize is the size of each fixed-width string in the header.
	headerStringSize = 260
)

// Header describes a demo file.
//
// /**
//  * char    demofilestamp[8];
//  * int32_t demoprotocol;
//  * int32_t networkprotocol;
//  * char    servername[260];
//  * char    clientname[260];
//  * char    mapname[260];
//  * char    gamedirectory[260];
//  * float   playback_time;
//  * int32_t playback_ticks;
//  * int32_t playback_frames;
//  * int32_t signonlength;
//  */
type Header struct {
	Type     string
	Version  int32
	Protocol int32

	Server string
	Client string
	Map    string
	Game   string

	// PlaybackTime is the recording length, in seconds.
	PlaybackTime float32
	Ticks        int32
	Frames       int32

	// SignOnLength is the byte length of the sign-on section.
	SignOnLength int32
}

// rawHeader is the on-disk layout of Header.
type rawHeader struct {
	Type         [8]byte
	Version      int32 `struc:",little"`
	Protocol     int32 `struc:",little"`
	Server       [headerStringSize]byte
	Client       [headerStringSize]byte
	Map          [headerStringSize]byte
	Game         [headerStringSize]byte
	PlaybackTime float32 `struc:",little"`
	Ticks        int32   `struc:",little"`
	Frames       int32   `struc:",little"`
	SignOnLength int32   `struc:",little"`
}

// ReadHeader reads a Header from r, advancing it by exactly HeaderSize bytes.
//
// ReadHeader does not validate the header's contents. If fewer than
// HeaderSize bytes remain, ErrMalformedHeader is returned and r is not
// advanced.
func ReadHeader(r *bitstream.R) (*Header, error) {
	if !r.Aligned() || r.Remaining() < HeaderSize {
		return nil, errors.Wrapf(ErrMalformedHeader, "%d bytes available, need %d", r.Remaining(), HeaderSize)
	}

	start := *r
	var raw rawHeader
	if err := struc.Unpack(r, &raw); err != nil {
		*r = start
		return nil, errors.Wrapf(ErrMalformedHeader, "unpacking header: %s", err)
	}

	return &Header{
		Type:         bitstream.TrimNUL(raw.Type[:]),
		Version:      raw.Version,
		Protocol:     raw.Protocol,
		Server:       bitstream.TrimNUL(raw.Server[:]),
		Client:       bitstream.TrimNUL(raw.Client[:]),
		Map:          bitstream.TrimNUL(raw.Map[:]),
		Game:         bitstream.TrimNUL(raw.Game[:]),
		PlaybackTime: raw.PlaybackTime,
		Ticks:        raw.Ticks,
		Frames:       raw.Frames,
		SignOnLength: raw.SignOnLength,
	}, nil
}

// WriteHeader writes h to w in its on-disk layout.
//
// Strings that do not fit in their fixed-width fields are rejected.
func WriteHeader(w io.Writer, h *Header) error {
	raw := rawHeader{
		Version:      h.Version,
		Protocol:     h.Protocol,
		PlaybackTime: h.PlaybackTime,
		Ticks:        h.Ticks,
		Frames:       h.Frames,
		SignOnLength: h.SignOnLength,
	}

	for _, f := range []struct {
		name string
		dst  []byte
		v    string
	}{
		{"type", raw.Type[:], h.Type},
		{"server", raw.Server[:], h.Server},
		{"client", raw.Client[:], h.Client},
		{"map", raw.Map[:], h.Map},
		{"game", raw.Game[:], h.Game},
	} {
		if len(f.v) > len(f.dst) {
			return errors.Errorf("%s field %q exceeds %d bytes", f.name, f.v, len(f.dst))
		}
		copy(f.dst, f.v)
	}

	return struc.Pack(w, &raw)
}

// Duration returns the header's playback time as a time.Duration.
func (h *Header) Duration() time.Duration {
	return time.Duration(float64(h.PlaybackTime) * float64(time.Second))
}

// TickRate returns the number of ticks per second, or 0 if the playback time
// is not positive.
func (h *Header) TickRate() float64 {
	if h.PlaybackTime <= 0 {
		return 0
	}
	return float64(h.Ticks) / float64(h.PlaybackTime)
}

// Validate returns an error if the header's magic is not HeaderMagic.
//
// The reader never calls Validate; it is offered to callers that want to
// reject foreign files early.
func (h *Header) Validate() error {
	if h.Type != HeaderMagic {
		return errors.Errorf("unrecognized demo magic %q", h.Type)
	}
	return nil
}

func (h *Header) String() string {
	return fmt.Sprintf("%s v%d/%d map=%q server=%q client=%q game=%q ticks=%d frames=%d",
		h.Type, h.Version, h.Protocol, h.Map, h.Server, h.Client, h.Game, h.Ticks, h.Frames)
}
