// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"mellium.im/xmppsm/internal/replay"
)

// exitStreamError is the exit status used when the replayed stream ended with
// a stream error.
const exitStreamError = 2

func run(cCtx *cli.Context) error {
	s, err := resolve(cCtx)
	if err != nil {
		return err
	}
	logger := newLogger(cCtx.App.ErrWriter, s.logLevel)

	var in io.Reader = os.Stdin
	if name := cCtx.Args().First(); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	lines, err := replay.Parse(in)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts := []replay.Option{
		replay.Logger(logger),
		replay.Metrics(reg, s.metricsNamespace),
	}
	if s.requestEvery > 0 {
		opts = append(opts, replay.RequestEvery(s.requestEvery))
	}
	report, err := replay.Run(cCtx.Context, lines, opts...)
	if err != nil {
		return err
	}

	w := cCtx.App.Writer
	printReport(w, report)
	if cCtx.Bool("output") {
		fmt.Fprintf(w, "\nOutput:\n%s\n", report.Output)
	}
	if cCtx.Bool("metrics") {
		fmt.Fprintln(w)
		if err = writeMetrics(w, reg); err != nil {
			return err
		}
	}
	if report.Err != nil {
		return cli.Exit(fmt.Sprintf("stream ended on line %d: %v", report.Line, report.Err), exitStreamError)
	}
	return nil
}

func newLogger(w io.Writer, level string) *logrus.Logger {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02T15:04:05.999999999Z07:00"
	customFormatter.FullTimestamp = true
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(customFormatter)
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

func printReport(w io.Writer, r replay.Report) {
	fmt.Fprintf(w, "Enabled:  %t\n", r.Stats.Enabled)
	if r.ID != "" {
		fmt.Fprintf(w, "ID:       %s\n", r.ID)
	}
	fmt.Fprintf(w, "Inbound:  %d\n", r.Stats.Inbound)
	fmt.Fprintf(w, "Outbound: %d\n", r.Stats.Outbound)
	fmt.Fprintf(w, "Last h:   %d\n", r.Stats.Acked)
	printStanzas(w, "Acknowledged", r.Acked)
	printStanzas(w, "Pending", r.Pending)
	printStanzas(w, "Resend", r.Resend)
	for _, f := range r.Failed {
		fmt.Fprintf(w, "Failed:   %v\n", f)
	}
	if se, ok := r.StreamError(); ok {
		fmt.Fprintf(w, "Stream error (line %d): %v\n", r.Line, se)
	}
}

func printStanzas(w io.Writer, title string, s []replay.Stanza) {
	if len(s) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(s))
	for _, st := range s {
		id := st.ID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(w, "\t%d\t%s\t%s\n", st.Seq, st.Kind, id)
	}
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err = expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
