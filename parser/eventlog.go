// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package parser

import (
	"github.com/gpittarelli/godemo/protocol/message"
)

// Sink receives events emitted by a Parser.
//
// HandleEvent is called synchronously, in stream order. If it returns an
// error, the Parser halts and reports that error.
type Sink interface {
	HandleEvent(ev message.Event) error
}

// SinkFunc is a function that implements Sink.
type SinkFunc func(ev message.Event) error

// HandleEvent implements Sink.
func (fn SinkFunc) HandleEvent(ev message.Event) error { return fn(ev) }

// EventLog is an append-only, ordered record of emitted events.
//
// The zero value is an empty EventLog.
type EventLog struct {
	events []message.Event
}

// HandleEvent implements Sink, appending ev to the log.
func (l *EventLog) HandleEvent(ev message.Event) error {
	l.events = append(l.events, ev)
	return nil
}

// Len returns the number of events in the log.
func (l *EventLog) Len() int { return len(l.events) }

// At returns the i'th event in the log.
func (l *EventLog) At(i int) message.Event { return l.events[i] }

// Events returns a copy of the log's events, in order.
func (l *EventLog) Events() []message.Event {
	if len(l.events) == 0 {
		return nil
	}
	return append([]message.Event(nil), l.events...)
}
