// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package parser

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_frames_total",
		Help: "Count of frames read, by frame type.",
	}, []string{"type"})

	frameBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demo_frame_bytes_total",
		Help: "Count of stream bytes consumed by frames.",
	})

	eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_events_total",
		Help: "Count of events emitted, by event kind.",
	}, []string{"kind"})

	parseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_parse_errors_total",
		Help: "Count of fatal parse errors, by stage.",
	}, []string{"type"})
)

// RegisterMonitoring registers all of this package's monitoring metrics.
func RegisterMonitoring(reg prometheus.Registerer) {
	reg.MustRegister(
		framesTotal,
		frameBytesTotal,
		eventsTotal,
		parseErrors,
	)
}
