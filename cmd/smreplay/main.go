// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The smreplay command replays a recorded XMPP stream through a stream
// management Manager and reports which stanzas were acknowledged.
//
// Each line of the transcript is a single top level element prefixed with
// "> " if it was sent or "< " if it was received.
// Blank lines and lines starting with "#" are ignored.
// If no file is given the transcript is read from standard input.
//
// Flags may also be set from the environment, from a .env file in the
// current directory, or from a YAML or TOML file given with -config.
package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("Failed to load environment variables: ", err)
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "smreplay",
		Usage:     "Replay a stream management transcript",
		ArgsUsage: "[transcript]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Load options from a YAML or TOML file",
				EnvVars: []string{"SMREPLAY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "The minimum level of log messages to print",
				EnvVars: []string{"SMREPLAY_LOG_LEVEL", "LOG_LEVEL"},
			},
			&cli.UintFlag{
				Name:    "request-every",
				Usage:   "Request an acknowledgement after this many sent stanzas (0 disables)",
				EnvVars: []string{"SMREPLAY_REQUEST_EVERY"},
			},
			&cli.BoolFlag{
				Name:    "metrics",
				Usage:   "Print the final counters in the Prometheus text format",
				EnvVars: []string{"SMREPLAY_METRICS"},
			},
			&cli.StringFlag{
				Name:    "metrics-namespace",
				Value:   "xmpp",
				Usage:   "The namespace of the printed metrics",
				EnvVars: []string{"SMREPLAY_METRICS_NAMESPACE"},
			},
			&cli.BoolFlag{
				Name:    "output",
				Usage:   "Print the XML written by the local entity",
				EnvVars: []string{"SMREPLAY_OUTPUT"},
			},
		},
		Action: run,
	}
}
