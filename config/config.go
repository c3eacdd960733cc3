/*
   Copyright 2025 The Excore Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config builds apis.Config values from functional options or
// from the environment variables of spec §6, mirroring the teacher's
// config.NewConfig/DefaultConfig/Option shape.
package config

import (
	"os"

	"go.uber.org/zap"

	"excore.dev/excore/apis"
)

const (
	// DefaultValidate is the default for Validate.
	DefaultValidate = true
	// DefaultManualSet is the default for ManualSet.
	DefaultManualSet = true
	// DefaultLogBuildMessage is the default for LogBuildMessage.
	DefaultLogBuildMessage = false
	// DefaultDebug is the default for Debug.
	DefaultDebug = false
)

// NewConfig constructs an apis.Config from the given options, starting
// from DefaultConfig.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// DefaultConfig is the configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		Validate:        DefaultValidate,
		ManualSet:       DefaultManualSet,
		LogBuildMessage: DefaultLogBuildMessage,
		Debug:           DefaultDebug,
		Logger:          zap.NewNop(),
	}
}

// FromEnv builds an apis.Config by layering the environment variables of
// spec §6 over DefaultConfig: EXCORE_VALIDATE, EXCORE_MANUAL_SET,
// EXCORE_LOG_BUILD_MESSAGE, EXCORE_DEBUG.
func FromEnv(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	if v, ok := boolEnv("EXCORE_VALIDATE"); ok {
		cfg.Validate = v
	}
	if v, ok := boolEnv("EXCORE_MANUAL_SET"); ok {
		cfg.ManualSet = v
	}
	if v, ok := boolEnv("EXCORE_LOG_BUILD_MESSAGE"); ok {
		cfg.LogBuildMessage = v
	}
	if v, ok := boolEnv("EXCORE_DEBUG"); ok {
		cfg.Debug = v
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		if cfg.Debug {
			l, _ := zap.NewDevelopment()
			cfg.Logger = l
		} else {
			cfg.Logger = zap.NewNop()
		}
	}
	return cfg
}

// boolEnv reads an on/off environment variable using the "1 enables, 0
// disables" convention of spec §6.
func boolEnv(name string) (bool, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return false, false
	}
	return v != "0", true
}

// Option is a functional option that mutates an apis.Config during
// construction.
type Option func(*apis.Config)

// WithValidate sets the Validate option.
func WithValidate(v bool) Option { return func(c *apis.Config) { c.Validate = v } }

// WithManualSet sets the ManualSet option.
func WithManualSet(v bool) Option { return func(c *apis.Config) { c.ManualSet = v } }

// WithLogBuildMessage sets the LogBuildMessage option.
func WithLogBuildMessage(v bool) Option { return func(c *apis.Config) { c.LogBuildMessage = v } }

// WithDebug sets the Debug option.
func WithDebug(v bool) Option { return func(c *apis.Config) { c.Debug = v } }

// WithLogger sets the Logger option. A nil logger is replaced by
// zap.NewNop() at construction time.
func WithLogger(l *zap.Logger) Option { return func(c *apis.Config) { c.Logger = l } }

// WithPrompter sets the Prompter capability used by manual-set
// validation.
func WithPrompter(p apis.Prompter) Option { return func(c *apis.Config) { c.Prompter = p } }
