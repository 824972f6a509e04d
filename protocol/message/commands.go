// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package message

import (
	"github.com/gpittarelli/godemo/support/bitstream"
)

// PacketDecoder decodes snapshot frames into a single *Packet carrying the
// raw payload.
type PacketDecoder struct{}

// Decode implements Decoder.
func (PacketDecoder) Decode(in *Input, st *State) ([]Event, error) {
	fr := fieldReader{r: in.Data}
	data := fr.bytes("snapshot payload", in.Length)
	if err := fr.Err(); err != nil {
		return nil, err
	}

	return []Event{&Packet{
		Stamp:      in.stamp(),
		ViewOrigin: in.ViewOrigin,
		Data:       data,
	}}, nil
}

// ConsoleCmdDecoder decodes ConsoleCmd frames.
//
// The payload is a NUL-terminated command string; a missing terminator is
// tolerated.
type ConsoleCmdDecoder struct{}

// Decode implements Decoder.
func (ConsoleCmdDecoder) Decode(in *Input, st *State) ([]Event, error) {
	fr := fieldReader{r: in.Data}
	data := fr.bytes("console command", in.Length)
	if err := fr.Err(); err != nil {
		return nil, err
	}

	return []Event{&ConsoleCmd{
		Stamp:   in.stamp(),
		Command: bitstream.TrimNUL(data),
	}}, nil
}

const (
	weaponSelectBits  = 11
	weaponSubtypeBits = 6
)

// UserCmdDecoder decodes UserCmd frames.
//
// Each field is preceded by a presence bit:
//
//	command_number:32 tick_count:32
//	viewangles[3]:float
//	forwardmove:float sidemove:float upmove:float
//	buttons:32 impulse:8
//	weaponselect:11 [weaponsubtype:6]
//	mousedx:16 mousedy:16
type UserCmdDecoder struct{}

// Decode implements Decoder.
func (UserCmdDecoder) Decode(in *Input, st *State) ([]Event, error) {
	fr := fieldReader{r: in.Data}
	cmd := UserCmd{Stamp: in.stamp()}

	if fr.bool("command number flag") {
		cmd.CommandNumber = fr.uint32("command number")
	}
	if fr.bool("tick count flag") {
		cmd.TickCount = fr.uint32("tick count")
	}
	for i := range cmd.ViewAngles {
		if fr.bool("view angle flag") {
			cmd.ViewAngles[i] = fr.float32("view angle")
		}
	}
	for _, mv := range []*float32{&cmd.ForwardMove, &cmd.SideMove, &cmd.UpMove} {
		if fr.bool("move flag") {
			*mv = fr.float32("move")
		}
	}
	if fr.bool("buttons flag") {
		cmd.Buttons = fr.uint32("buttons")
	}
	if fr.bool("impulse flag") {
		cmd.Impulse = fr.uint8("impulse")
	}
	if fr.bool("weapon select flag") {
		cmd.WeaponSelect = uint16(fr.bits("weapon select", weaponSelectBits))
		if fr.bool("weapon subtype flag") {
			cmd.WeaponSubtype = uint8(fr.bits("weapon subtype", weaponSubtypeBits))
		}
	}
	if fr.bool("mouse dx flag") {
		cmd.MouseDX = int16(fr.uint16("mouse dx"))
	}
	if fr.bool("mouse dy flag") {
		cmd.MouseDY = int16(fr.uint16("mouse dy"))
	}

	if err := fr.Err(); err != nil {
		return nil, err
	}
	return []Event{&cmd}, nil
}
