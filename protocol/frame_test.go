// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol_test

import (
	"io"

	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/protocoltest"
	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Frame Reading", func() {
	var (
		b  protocoltest.Builder
		fr protocol.FrameReader
		f  protocol.Frame
	)
	BeforeEach(func() {
		b = protocoltest.Builder{}
		fr = protocol.FrameReader{}
		f = protocol.Frame{}
	})

	snapshot := func(t protocol.MessageType, tick int32, payload []byte) *protocol.Frame {
		return &protocol.Frame{
			Type: t,
			Tick: tick,
			ViewOrigin: [2]protocol.Vector{
				{1, 2, 3},
				{4, 5, 6},
			},
			ViewAngles: [2]protocol.Vector{
				{-7, 8, -9},
				{10, 11, 12},
			},
			Payload: payload,
		}
	}

	It("reads a snapshot frame, consuming its view block", func() {
		data := b.Frame(snapshot(protocol.Packet, 42, []byte{0xDE, 0xAD})).Bytes()
		Expect(data).To(HaveLen(1 + 4 + 76 + 4 + 2))

		r := bitstream.R{Buffer: data}
		Expect(fr.ReadFrame(&r, &f)).To(Succeed())
		Expect(f.Type).To(Equal(protocol.Packet))
		Expect(f.Tick).To(Equal(int32(42)))
		Expect(f.ViewOrigin).To(Equal([2]protocol.Vector{{1, 2, 3}, {4, 5, 6}}))
		Expect(f.ViewAngles).To(Equal([2]protocol.Vector{{-7, 8, -9}, {10, 11, 12}}))
		Expect(f.Length).To(Equal(2))
		Expect(f.Payload).To(Equal([]byte{0xDE, 0xAD}))
		Expect(f.Size).To(Equal(int64(len(data))))
		Expect(r.Remaining()).To(Equal(0))
	})

	It("reads sequence numbers when configured", func() {
		b.Frames.SequenceNumbers = true
		fr.SequenceNumbers = true

		in := snapshot(protocol.SignOn, 0, nil)
		in.SequenceIn, in.SequenceOut = 17, 18
		data := b.Frame(in).Bytes()
		Expect(data).To(HaveLen(1 + 4 + 76 + 8 + 4))

		r := bitstream.R{Buffer: data}
		Expect(fr.ReadFrame(&r, &f)).To(Succeed())
		Expect(f.SequenceIn).To(Equal(int32(17)))
		Expect(f.SequenceOut).To(Equal(int32(18)))
		Expect(f.Payload).To(BeEmpty())
		Expect(r.Remaining()).To(Equal(0))
	})

	It("skips the user command sequence field", func() {
		data := b.Frame(&protocol.Frame{Type: protocol.UserCmd, Tick: 9, Payload: []byte{1, 2, 3}}).Bytes()
		Expect(data).To(HaveLen(1 + 4 + 4 + 4 + 3))

		r := bitstream.R{Buffer: data}
		Expect(fr.ReadFrame(&r, &f)).To(Succeed())
		Expect(f.Type).To(Equal(protocol.UserCmd))
		Expect(f.Payload).To(Equal([]byte{1, 2, 3}))
		Expect(f.Size).To(Equal(int64(16)))
	})

	It("reads a SyncTick frame as type and tick only", func() {
		data := b.Frame(&protocol.Frame{Type: protocol.SyncTick, Tick: 3}).
			Frame(&protocol.Frame{Type: protocol.ConsoleCmd, Tick: 4, Payload: []byte("a\x00")}).
			Bytes()

		r := bitstream.R{Buffer: data}
		Expect(fr.ReadFrame(&r, &f)).To(Succeed())
		Expect(f.Type).To(Equal(protocol.SyncTick))
		Expect(f.Payload).To(BeNil())
		Expect(f.Size).To(Equal(int64(5)))
		Expect(r.Pos()).To(Equal(int64(5)))

		Expect(fr.ReadFrame(&r, &f)).To(Succeed())
		Expect(f.Type).To(Equal(protocol.ConsoleCmd))
		Expect(f.Payload).To(Equal([]byte("a\x00")))
	})

	It("returns io.EOF at Stop, consuming only the type byte", func() {
		data := b.Stop().Raw(0xFF, 0xFF, 0xFF).Bytes()

		r := bitstream.R{Buffer: data}
		Expect(fr.ReadFrame(&r, &f)).To(Equal(io.EOF))
		Expect(r.Pos()).To(Equal(int64(1)))
	})

	It("advances by the sum of frame sizes, independent of payload content", func() {
		frames := []*protocol.Frame{
			snapshot(protocol.SignOn, 0, []byte{0, 0, 0}),
			{Type: protocol.DataTables, Tick: 0, Payload: make([]byte, 100)},
			{Type: protocol.StringTables, Tick: 0, Payload: []byte{7}},
			{Type: protocol.SyncTick, Tick: 1},
			snapshot(protocol.Packet, 2, []byte{0xFF, 0xFF}),
			{Type: protocol.UserCmd, Tick: 2},
			{Type: protocol.ConsoleCmd, Tick: 3, Payload: []byte("x\x00")},
		}
		for _, in := range frames {
			b.Frame(in)
		}
		data := b.Stop().Bytes()

		r := bitstream.R{Buffer: data}
		var total int64
		for range frames {
			Expect(fr.ReadFrame(&r, &f)).To(Succeed())
			total += f.Size
			Expect(r.Pos()).To(Equal(total))
		}
		Expect(fr.ReadFrame(&r, &f)).To(Equal(io.EOF))
		Expect(r.Pos()).To(Equal(int64(len(data))))
	})

	Context("with malformed input", func() {
		It("fails on an empty buffer", func() {
			err := fr.ReadFrame(&bitstream.R{}, &f)
			Expect(errors.Cause(err)).To(Equal(protocol.ErrTruncatedFrame))
		})

		It("fails on a truncated view block and restores the cursor", func() {
			data := b.Frame(snapshot(protocol.Packet, 1, nil)).Bytes()

			r := bitstream.R{Buffer: data[:40]}
			err := fr.ReadFrame(&r, &f)
			Expect(errors.Cause(err)).To(Equal(protocol.ErrTruncatedFrame))
			Expect(r.Pos()).To(Equal(int64(0)))
		})

		It("fails when the payload length exceeds the buffer", func() {
			data := b.Frame(&protocol.Frame{Type: protocol.DataTables, Payload: make([]byte, 10)}).Bytes()

			r := bitstream.R{Buffer: data[:len(data)-1]}
			err := fr.ReadFrame(&r, &f)
			Expect(errors.Cause(err)).To(Equal(protocol.ErrTruncatedFrame))
			Expect(r.Pos()).To(Equal(int64(0)))
		})

		It("fails on a negative payload length", func() {
			data := b.Raw(byte(protocol.ConsoleCmd), 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF).Bytes()

			err := fr.ReadFrame(&bitstream.R{Buffer: data}, &f)
			Expect(errors.Cause(err)).To(Equal(protocol.ErrTruncatedFrame))
		})
	})

	Context("with unknown frame types", func() {
		var data []byte
		BeforeEach(func() {
			data = b.Frame(&protocol.Frame{Type: 42, Tick: 5, Payload: []byte{1, 2}}).Stop().Bytes()
		})

		It("fails by default", func() {
			r := bitstream.R{Buffer: data}
			err := fr.ReadFrame(&r, &f)
			Expect(errors.Cause(err)).To(Equal(protocol.ErrUnknownFrameType))
			Expect(r.Pos()).To(Equal(int64(0)))
		})

		It("reads them as length-prefixed when lenient", func() {
			fr.LenientTypes = true

			r := bitstream.R{Buffer: data}
			Expect(fr.ReadFrame(&r, &f)).To(Succeed())
			Expect(f.Type).To(Equal(protocol.MessageType(42)))
			Expect(f.Type.String()).To(Equal("UNKNOWN(42)"))
			Expect(f.Payload).To(Equal([]byte{1, 2}))
			Expect(fr.ReadFrame(&r, &f)).To(Equal(io.EOF))
		})
	})
})
