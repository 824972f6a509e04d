// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package parser

import (
	"context"
	"testing"

	"github.com/gpittarelli/godemo/match"
	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"
	"github.com/gpittarelli/godemo/protocol/protocoltest"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	ginkgo "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Parser", func() {
	var b protocoltest.Builder
	ginkgo.BeforeEach(func() {
		b = protocoltest.Builder{}
		b.Header(protocoltest.DefaultHeader())
	})

	packet := func(tick int32, payload ...byte) *protocol.Frame {
		return &protocol.Frame{
			Type:       protocol.Packet,
			Tick:       tick,
			ViewOrigin: [2]protocol.Vector{{1, 2, 3}},
			Payload:    payload,
		}
	}

	ginkgo.It("parses a header, a Packet frame and a Stop frame", func() {
		data := b.Frame(packet(100)).Stop().Bytes()

		p := New(data)
		Expect(p.State()).To(Equal(Created))

		h, err := p.ReadHeader()
		Expect(err).ToNot(HaveOccurred())
		Expect(h).To(Equal(protocoltest.DefaultHeader()))
		Expect(p.State()).To(Equal(HeaderRead))
		Expect(p.Pos()).To(Equal(int64(protocol.HeaderSize)))

		more, err := p.Next()
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(p.State()).To(Equal(Streaming))
		Expect(p.Pos()).To(Equal(int64(protocol.HeaderSize + 85)))

		more, err = p.Next()
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(p.State()).To(Equal(Done))
		Expect(p.Pos()).To(Equal(int64(protocol.HeaderSize + 85 + 1)))

		Expect(p.Log().Len()).To(Equal(1))
		pkt, ok := p.Log().At(0).(*message.Packet)
		Expect(ok).To(BeTrue())
		Expect(pkt.Origin()).To(Equal(message.Stamp{Type: protocol.Packet, Tick: 100}))
		Expect(pkt.ViewOrigin).To(Equal([2]protocol.Vector{{1, 2, 3}}))
		Expect(pkt.Data).To(BeEmpty())
		Expect(p.Match().Header).To(BeIdenticalTo(h))
		Expect(p.Match().Count(message.KindPacket)).To(Equal(1))
	})

	ginkgo.It("reads the header implicitly", func() {
		p := New(b.Stop().Bytes())
		more, err := p.Next()
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeFalse())
		Expect(p.Header()).ToNot(BeNil())
	})

	ginkgo.It("returns ErrDone after the stream is done", func() {
		p := New(b.Stop().Bytes())
		_, err := p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())

		_, err = p.Next()
		Expect(err).To(Equal(ErrDone))
		_, err = p.ReadHeader()
		Expect(err).To(Equal(ErrDone))

		// Running a finished Parser is a no-op.
		_, err = p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
	})

	ginkgo.It("yields identical events when the same buffer is parsed twice", func() {
		data := b.
			Frame(&protocol.Frame{Type: protocol.SignOn, Payload: []byte{1, 2, 3}}).
			Frame(&protocol.Frame{Type: protocol.SyncTick}).
			Frame(packet(1, 0xFF)).
			Frame(&protocol.Frame{Type: protocol.ConsoleCmd, Tick: 2, Payload: []byte("status\x00")}).
			Frame(packet(3)).
			Stop().
			Bytes()

		run := func() []message.Event {
			p := New(data)
			_, err := p.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			return p.Log().Events()
		}
		first := run()
		Expect(first).To(HaveLen(4))
		Expect(run()).To(Equal(first))
	})

	ginkgo.It("consumes only the type and tick of a SyncTick frame, yielding no events", func() {
		data := b.Frame(&protocol.Frame{Type: protocol.SyncTick, Tick: 9}).Stop().Bytes()

		p := New(data)
		more, err := p.Next()
		Expect(err).ToNot(HaveOccurred())
		Expect(more).To(BeTrue())
		Expect(p.Pos()).To(Equal(int64(protocol.HeaderSize + 5)))
		Expect(p.Log().Len()).To(Equal(0))
	})

	ginkgo.It("never reads past the Stop frame", func() {
		// The trailing bytes would be a truncated frame if read.
		data := b.Stop().Raw(byte(protocol.Packet), 0xFF).Bytes()

		p := New(data)
		m, err := p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(m.Events).To(Equal(0))
		Expect(p.Pos()).To(Equal(int64(protocol.HeaderSize + 1)))
	})

	ginkgo.It("delivers events to sinks in stream order, after the built-ins", func() {
		data := b.Frame(packet(1)).Frame(packet(2)).Frame(packet(3)).Stop().Bytes()

		var ticks []int32
		var logLens []int
		p := New(data)
		p.AddSink(SinkFunc(func(ev message.Event) error {
			ticks = append(ticks, ev.Origin().Tick)
			logLens = append(logLens, p.Log().Len())
			return nil
		}))
		_, err := p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(ticks).To(Equal([]int32{1, 2, 3}))
		Expect(logLens).To(Equal([]int{1, 2, 3}))
	})

	ginkgo.It("halts on a sink failure, and the failure is sticky", func() {
		failure := errors.New("sink failed")
		data := b.Frame(packet(1)).Frame(packet(2)).Stop().Bytes()

		var later int
		p := New(data)
		p.AddSink(SinkFunc(func(message.Event) error { return failure }))
		p.AddSink(SinkFunc(func(message.Event) error {
			later++
			return nil
		}))

		_, err := p.Run(context.Background())
		Expect(errors.Cause(err)).To(Equal(failure))
		Expect(later).To(Equal(0))

		_, err2 := p.Next()
		Expect(err2).To(Equal(err))
		Expect(p.Err()).To(Equal(err))
	})

	ginkgo.It("calls OnDone exactly once with the Match", func() {
		var calls []*match.Match
		p := New(b.Frame(packet(7)).Stop().Bytes())
		p.OnDone = func(m *match.Match) error {
			calls = append(calls, m)
			return nil
		}

		m, err := p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
		_, _ = p.Run(context.Background())
		_, _ = p.Next()
		Expect(calls).To(Equal([]*match.Match{m}))
		Expect(m.LastTick).To(Equal(int32(7)))
	})

	ginkgo.It("reports an OnDone failure", func() {
		failure := errors.New("done failed")
		p := New(b.Stop().Bytes())
		p.OnDone = func(*match.Match) error { return failure }

		_, err := p.Run(context.Background())
		Expect(errors.Cause(err)).To(Equal(failure))
	})

	ginkgo.It("fails on a malformed header", func() {
		p := New([]byte("HL2DEMO\x00"))
		_, err := p.Run(context.Background())
		Expect(errors.Cause(err)).To(Equal(protocol.ErrMalformedHeader))
		Expect(p.State()).To(Equal(Created))
	})

	ginkgo.It("fails on a stream that ends without a Stop frame", func() {
		p := New(b.Frame(packet(1)).Bytes())
		_, err := p.Run(context.Background())
		Expect(errors.Cause(err)).To(Equal(protocol.ErrTruncatedFrame))
		Expect(p.Log().Len()).To(Equal(1))
	})

	ginkgo.Context("with unknown frame types", func() {
		var data []byte
		ginkgo.BeforeEach(func() {
			data = b.Frame(&protocol.Frame{Type: 42, Tick: 3, Payload: []byte{1, 2}}).Frame(packet(4)).Stop().Bytes()
		})

		ginkgo.It("fails by default", func() {
			p := New(data)
			_, err := p.Run(context.Background())
			Expect(errors.Cause(err)).To(Equal(protocol.ErrUnknownFrameType))
		})

		ginkgo.It("skips them, yielding no events, when lenient", func() {
			p := New(data)
			p.Frames.LenientTypes = true
			m, err := p.Run(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(m.Events).To(Equal(1))
			Expect(m.FirstTick).To(Equal(int32(4)))
		})
	})

	ginkgo.It("stops between frames when its Context is cancelled", func() {
		p := New(b.Frame(packet(1)).Stop().Bytes())
		c, cancelFunc := context.WithCancel(context.Background())
		cancelFunc()

		_, err := p.Run(c)
		Expect(err).To(Equal(context.Canceled))
		Expect(p.Log().Len()).To(Equal(0))

		// The Parser may be resumed.
		_, err = p.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(p.Log().Len()).To(Equal(1))
	})

	ginkgo.It("registers its monitoring metrics", func() {
		reg := prometheus.NewRegistry()
		RegisterMonitoring(reg)

		_, err := New(b.Frame(packet(1)).Stop().Bytes()).Run(context.Background())
		Expect(err).ToNot(HaveOccurred())

		families, err := reg.Gather()
		Expect(err).ToNot(HaveOccurred())
		var names []string
		for _, mf := range families {
			names = append(names, mf.GetName())
		}
		Expect(names).To(ContainElement("demo_frames_total"))
		Expect(names).To(ContainElement("demo_events_total"))
	})
})

var _ = ginkgo.Describe("EventLog", func() {
	ginkgo.It("returns a copy of its events", func() {
		var l EventLog
		Expect(l.Events()).To(BeNil())

		ev := &message.ConsoleCmd{Command: "quit"}
		Expect(l.HandleEvent(ev)).To(Succeed())
		events := l.Events()
		events[0] = nil
		Expect(l.At(0)).To(BeIdenticalTo(ev))
		Expect(l.Len()).To(Equal(1))
	})
})

func TestParser(t *testing.T) {
	RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Parser Tests")
}
