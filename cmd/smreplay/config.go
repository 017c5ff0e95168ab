// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional configuration file.
// Unset keys leave the flag defaults alone.
type fileConfig struct {
	LogLevel         *string `yaml:"logLevel" toml:"log_level"`
	RequestEvery     *uint32 `yaml:"requestEvery" toml:"request_every"`
	MetricsNamespace *string `yaml:"metricsNamespace" toml:"metrics_namespace"`
}

// settings are the options of a replay after flags, environment variables and
// the configuration file have been merged.
type settings struct {
	logLevel         string
	requestEvery     uint32
	metricsNamespace string
}

// loadConfig reads a TOML file if path ends in ".toml" and YAML otherwise.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// resolve merges the configuration file into the flags.
// Flags set on the command line or in the environment take precedence.
func resolve(cCtx *cli.Context) (settings, error) {
	s := settings{
		logLevel:         cCtx.String("log-level"),
		requestEvery:     uint32(cCtx.Uint("request-every")),
		metricsNamespace: cCtx.String("metrics-namespace"),
	}
	path := cCtx.String("config")
	if path == "" {
		return s, nil
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return s, err
	}
	if cfg.LogLevel != nil && !cCtx.IsSet("log-level") {
		s.logLevel = *cfg.LogLevel
	}
	if cfg.RequestEvery != nil && !cCtx.IsSet("request-every") {
		s.requestEvery = *cfg.RequestEvery
	}
	if cfg.MetricsNamespace != nil && !cCtx.IsSet("metrics-namespace") {
		s.metricsNamespace = *cfg.MetricsNamespace
	}
	return s, nil
}
