// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package demoinfo defines the logic for the "demoinfo" app.
//
// This app reads a demo file, summarizes the recorded match, and optionally
// exports every decoded event to an event file.
package demoinfo

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/gpittarelli/godemo/match"
	"github.com/gpittarelli/godemo/parser"
	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"
	"github.com/gpittarelli/godemo/replay/eventfile"
	"github.com/gpittarelli/godemo/support/logging"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// Main is the main entry point.
func Main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] DEMO\n", os.Args[0])
		fs.PrintDefaults()
	}
	flags := AddFlags(fs)
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := flags.Resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(2)
	}

	logger, sync, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Couldn't create logger: %s\n", err)
		os.Exit(1)
	}
	defer sync()

	c, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancelFunc()

	if _, err := Run(c, &cfg, fs.Arg(0), logger, os.Stdout); err != nil {
		logger.Errorf("Failed to read demo %q: %+v", fs.Arg(0), err)
		sync()
		os.Exit(1)
	}
}

// Run reads the demo file at path, writing a summary of its match to out.
func Run(c context.Context, cfg *Config, path string, logger logging.L, out io.Writer) (*match.Match, error) {
	logger = logging.Must(logger)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading demo file")
	}

	reg := prometheus.NewRegistry()
	parser.RegisterMonitoring(reg)

	p := parser.New(data)
	p.Frames = protocol.FrameReader{
		SequenceNumbers: cfg.SequenceNumbers,
		LenientTypes:    cfg.LenientTypes,
	}
	p.Logger = logger

	if cfg.Strict {
		h, err := p.ReadHeader()
		if err != nil {
			return nil, err
		}
		if err := h.Validate(); err != nil {
			return nil, err
		}
	}

	var ew *eventfile.Writer
	if cfg.Export.Path != "" {
		if ew, err = cfg.Export.eventfileConfig().Create(cfg.Export.Path); err != nil {
			return nil, errors.Wrap(err, "creating export file")
		}
		p.AddSink(ew)

		// Commit the export once the stream completes.
		p.OnDone = func(*match.Match) error {
			defer func() { ew = nil }()
			if err := ew.Close(); err != nil {
				return err
			}
			logger.Infof("Exported %d event(s) to %q.", ew.NumEvents(), ew.Path())
			return nil
		}
	}
	defer func() {
		if ew != nil {
			_ = ew.Abort()
		}
	}()

	m, err := p.Run(c)

	if cfg.MetricsTextfile != "" {
		if merr := prometheus.WriteToTextfile(cfg.MetricsTextfile, reg); merr != nil {
			logger.Warnf("Couldn't write metrics to %q: %s", cfg.MetricsTextfile, merr)
		}
	}

	if err != nil {
		return m, err
	}
	return m, WriteSummary(out, m)
}

// WriteSummary writes a human-readable summary of m to w.
func WriteSummary(w io.Writer, m *match.Match) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	if h := m.Header; h != nil {
		fmt.Fprintf(tw, "Server:\t%s\n", h.Server)
		fmt.Fprintf(tw, "Client:\t%s\n", h.Client)
		fmt.Fprintf(tw, "Map:\t%s\n", h.Map)
		fmt.Fprintf(tw, "Game:\t%s\n", h.Game)
		fmt.Fprintf(tw, "Duration:\t%s (%d ticks, %.1f ticks/s)\n", h.Duration(), h.Ticks, h.TickRate())
	}
	fmt.Fprintf(tw, "Ticks:\t%d-%d\n", m.FirstTick, m.LastTick)
	fmt.Fprintf(tw, "Events:\t%d\n", m.Events)
	for _, k := range []message.Kind{
		message.KindPacket,
		message.KindConsoleCmd,
		message.KindUserCmd,
		message.KindDataTables,
		message.KindStringTables,
	} {
		fmt.Fprintf(tw, "  %s:\t%d\n", k, m.Count(k))
	}
	fmt.Fprintf(tw, "Server classes:\t%d\n", len(m.ServerClasses))
	fmt.Fprintf(tw, "String tables:\t%d\n", len(m.StringTables))

	roster := m.Roster()
	fmt.Fprintf(tw, "Players:\t%d\n", len(roster))
	for _, pl := range roster {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", pl.UserID, pl.Name, pl.GUID)
	}
	return tw.Flush()
}
