// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package parser drives a demo stream from its header to its Stop frame,
// emitting decoded events to a set of sinks.
package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/gpittarelli/godemo/match"
	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"
	"github.com/gpittarelli/godemo/support/bitstream"
	"github.com/gpittarelli/godemo/support/fmtutil"
	"github.com/gpittarelli/godemo/support/logging"

	"github.com/pkg/errors"
)

// ErrDone is returned by a Parser's read operations once its stream has
// terminated.
var ErrDone = errors.New("demo stream is done")

// debugPayloadBytes is the number of payload bytes dumped in debug logs.
const debugPayloadBytes = 64

// State is the state of a Parser.
type State int

const (
	// Created is the state of a new Parser.
	Created State = iota
	// HeaderRead is the state after the header has been read.
	HeaderRead
	// Streaming is the state while frames are being read.
	Streaming
	// Done is the state after the Stop frame has been read.
	Done
)

func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case HeaderRead:
		return "HeaderRead"
	case Streaming:
		return "Streaming"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Parser reads a demo stream from an in-memory buffer.
//
// Each frame is decoded by the Dispatcher and the resulting events are emitted,
// in order, to the Parser's EventLog, its Match, and then each registered Sink.
//
// Parser is not safe for concurrent use. Its exported fields must not be
// changed after the header has been read.
type Parser struct {
	// Frames configures how frames are read.
	Frames protocol.FrameReader

	// Dispatcher decodes frame payloads. If nil, a default Dispatcher will be
	// used.
	Dispatcher *message.Dispatcher

	// Logger is the logger instance to use. If nil, no logging will be
	// performed.
	Logger logging.L

	// OnDone, if not nil, is called exactly once with the aggregated Match when
	// the stream's Stop frame is read. An error returned by OnDone halts the
	// Parser.
	OnDone func(m *match.Match) error

	r      bitstream.R
	state  State
	err    error
	header *protocol.Header
	frame  protocol.Frame

	log   EventLog
	match *match.Match
	sinks []Sink
}

// New returns a Parser that reads the demo stream in buf.
//
// The Parser does not copy buf. Events may reference it, so it must not be
// modified while the Parser or its events are in use.
func New(buf []byte) *Parser {
	return &Parser{
		r:     bitstream.R{Buffer: buf},
		match: match.New(nil),
	}
}

// AddSink registers s to receive events after all previously-registered
// sinks.
func (p *Parser) AddSink(s Sink) { p.sinks = append(p.sinks, s) }

// State returns the Parser's current state.
func (p *Parser) State() State { return p.state }

// Err returns the Parser's fatal error, if any.
func (p *Parser) Err() error { return p.err }

// Pos returns the Parser's byte offset in its stream.
func (p *Parser) Pos() int64 { return p.r.Pos() }

// Header returns the stream's header, or nil if it has not been read.
func (p *Parser) Header() *protocol.Header { return p.header }

// Log returns the Parser's EventLog.
func (p *Parser) Log() *EventLog { return &p.log }

// Match returns the Parser's Match.
func (p *Parser) Match() *match.Match { return p.match }

func (p *Parser) logger() logging.L { return logging.Must(p.Logger) }

func (p *Parser) dispatcher() *message.Dispatcher {
	if p.Dispatcher == nil {
		p.Dispatcher = message.NewDispatcher()
	}
	return p.Dispatcher
}

// fail records err as the Parser's fatal error.
func (p *Parser) fail(stage string, err error) error {
	parseErrors.WithLabelValues(stage).Inc()
	p.err = err
	return err
}

// ReadHeader reads the stream's header.
//
// If the header has already been read, ReadHeader returns it again.
func (p *Parser) ReadHeader() (*protocol.Header, error) {
	switch {
	case p.err != nil:
		return nil, p.err
	case p.state == Done:
		return nil, ErrDone
	case p.state != Created:
		return p.header, nil
	}

	h, err := protocol.ReadHeader(&p.r)
	if err != nil {
		return nil, p.fail("header", errors.Wrap(err, "reading header"))
	}

	p.header = h
	p.match.Header = h
	p.state = HeaderRead
	p.logger().Infof("Read demo header: %s", h)
	return h, nil
}

// Next reads and dispatches the next frame, emitting its events.
//
// If the header has not been read yet, Next reads it first.
//
// Next returns true if a frame was processed and more may follow. It returns
// false with a nil error when the stream's Stop frame is read, at which point
// the Parser is Done and subsequent calls return ErrDone.
//
// Any other error is fatal: it is returned by this and all subsequent calls.
func (p *Parser) Next() (bool, error) {
	if p.state == Created {
		if _, err := p.ReadHeader(); err != nil {
			return false, err
		}
	}
	switch {
	case p.err != nil:
		return false, p.err
	case p.state == Done:
		return false, ErrDone
	}
	p.state = Streaming

	f := &p.frame
	switch err := p.Frames.ReadFrame(&p.r, f); err {
	case nil:
	case io.EOF:
		return false, p.finish()
	default:
		return false, p.fail("frame", errors.Wrapf(err, "reading frame at offset %d", p.r.Pos()))
	}

	framesTotal.WithLabelValues(f.Type.String()).Inc()
	frameBytesTotal.Add(float64(f.Size))

	if f.Type.Known() {
		p.logger().Debugf("Read %s frame at tick %d (%d bytes):\n%s",
			f.Type, f.Tick, f.Size, fmtutil.Truncate(f.Payload, debugPayloadBytes))
	} else {
		p.logger().Warnf("Skipping frame with unknown type %d at tick %d (%d bytes).",
			uint8(f.Type), f.Tick, f.Size)
	}

	events, err := p.dispatcher().Dispatch(f)
	if err != nil {
		return false, p.fail("decode", err)
	}
	for _, ev := range events {
		if err := p.Emit(ev); err != nil {
			return false, p.fail("sink", err)
		}
	}
	return true, nil
}

func (p *Parser) finish() error {
	p.state = Done
	p.logger().Infof("Demo stream done at offset %d: %d event(s) over %d tick(s).",
		p.r.Pos(), p.log.Len(), p.match.Ticks())

	if p.OnDone != nil {
		if err := p.OnDone(p.match); err != nil {
			return p.fail("done", errors.Wrap(err, "completing match"))
		}
	}
	return nil
}

// Emit delivers ev to the EventLog, the Match and then each registered Sink,
// in that order. Delivery stops at the first failure, which is returned.
func (p *Parser) Emit(ev message.Event) error {
	eventsTotal.WithLabelValues(ev.Kind().String()).Inc()

	if err := p.log.HandleEvent(ev); err != nil {
		return err
	}
	if err := p.match.HandleEvent(ev); err != nil {
		return errors.Wrapf(err, "aggregating %s event", ev.Kind())
	}
	for _, s := range p.sinks {
		if err := s.HandleEvent(ev); err != nil {
			return errors.Wrapf(err, "delivering %s event at tick %d", ev.Kind(), ev.Origin().Tick)
		}
	}
	return nil
}

// Run reads the header, if necessary, and then every frame until the stream's
// Stop frame, returning the aggregated Match.
//
// c is checked between frames. If it is cancelled, Run returns its error and
// the Parser may be resumed by a later call.
func (p *Parser) Run(c context.Context) (*match.Match, error) {
	if p.err == nil && p.state == Done {
		return p.match, nil
	}

	for {
		if err := c.Err(); err != nil {
			return p.match, err
		}

		more, err := p.Next()
		if err != nil {
			return p.match, err
		}
		if !more {
			return p.match, nil
		}
	}
}
