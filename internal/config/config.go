// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/dbgctl/internal/errors"
)

const (
	defaultConfigDir  = ".dbgctl"
	defaultConfigFile = "config.yaml"
	configVersion     = "1"
)

// Config is the on-disk declaration of a host's descriptor population
// (for boot/serve/demo purposes, since this engine has no compile-time
// macro scaffolding of its own) plus the boot-time queries to replay.
type Config struct {
	Version string       `yaml:"version"`
	Boot    BootConfig   `yaml:"boot"`
	Modules []ModuleSpec `yaml:"modules"`
	Serve   ServeConfig  `yaml:"serve,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// BootConfig declares the command-line-style parameters replayed at
// startup, per spec.md §4.8: "dyndbg", "<module>.dyndbg" keys, plus
// "verbose".
type BootConfig struct {
	Args map[string]string `yaml:"args"`
}

// ModuleSpec declares one demo module's descriptors and class maps, used
// by `dbgctl boot`/`dbgctl serve` to populate the registry the way the
// host's compile-time macros would in production (spec.md §9's "compile-
// time macro scaffolding" is out of scope; this is its stand-in).
type ModuleSpec struct {
	Name        string           `yaml:"name"`
	Sites       []SiteSpec       `yaml:"sites"`
	ClassMaps   []ClassMapSpec   `yaml:"class_maps,omitempty"`
	ClassUsers  []ClassUserSpec  `yaml:"class_users,omitempty"`
	ClassParams []ClassParamSpec `yaml:"class_params,omitempty"`
}

// ClassParamSpec declares a class parameter (spec.md §4.4) bound to one of
// the module's own class_maps by index, with a default state word applied
// at boot time to synchronize site state with the declared defaults.
type ClassParamSpec struct {
	Name     string `yaml:"name"`
	MapIndex int    `yaml:"map_index"`
	FlagSpec string `yaml:"flag_spec,omitempty"`
	Default  uint64 `yaml:"default,omitempty"`
}

// SiteSpec declares one emission-site descriptor.
type SiteSpec struct {
	Function string `yaml:"function"`
	File     string `yaml:"file"`
	Line     uint32 `yaml:"line"`
	Format   string `yaml:"format"`
	Class    string `yaml:"class,omitempty"` // name from this module's class_maps or a map it uses via class_users, or "" for DEFAULT_CLASS
}

// ClassMapSpec declares a DEFINE-side named class-id space.
type ClassMapSpec struct {
	Base       uint8    `yaml:"base"`
	ClassNames []string `yaml:"class_names"`
	MapType    string   `yaml:"map_type"` // "disjoint_bits" or "level_num"
}

// ClassUserSpec declares a USE-side reference to another module's class
// maps, identified by that module's name: every class map that module
// owns is borrowed.
type ClassUserSpec struct {
	FromModule string `yaml:"from_module"`
}

// ServeConfig configures the optional HTTP control/metrics server.
type ServeConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

// Default returns a minimal config with an empty boot block and no demo
// modules.
func Default() *Config {
	return &Config{
		Version: configVersion,
		Boot:    BootConfig{Args: map[string]string{}},
		Serve:   ServeConfig{ListenAddr: "127.0.0.1:8088"},
		Metrics: MetricsConfig{ListenAddr: "127.0.0.1:9090", Path: "/metrics"},
	}
}

// Load reads and validates a config file. If path is "", it searches the
// current and parent directories for .dbgctl/config.yaml.
func Load(path string) (*Config, error) {
	if path == "" {
		if env := os.Getenv("DBGCTL_CONFIG_PATH"); env != "" {
			path = env
		}
	}
	if path == "" {
		var err error
		path, err = find()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(
			"cannot read configuration file",
			fmt.Sprintf("failed to read %s", path),
			"check file permissions and ensure the file exists",
			err,
		)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigError(
			"invalid configuration format",
			"YAML parsing failed",
			fmt.Sprintf("edit %s to fix syntax errors, or run 'dbgctl init'", path),
			err,
		)
	}
	if cfg.Version != configVersion {
		return nil, errors.NewConfigError(
			"unsupported configuration version",
			fmt.Sprintf("config version %q is not supported (expected %q)", cfg.Version, configVersion),
			"run 'dbgctl init' to regenerate the configuration file",
			nil,
		)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory if
// needed.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.NewInternalError("cannot encode configuration", "YAML marshaling failed", "this is a bug", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return errors.NewPermissionError("cannot create configuration directory", err.Error(), "check directory permissions", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.NewPermissionError("cannot write configuration file", err.Error(), "check file permissions", err)
	}
	return nil
}

// Path returns the default config file path under dir.
func Path(dir string) string {
	return filepath.Join(dir, defaultConfigDir, defaultConfigFile)
}

func find() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.NewInternalError("cannot access working directory", "", "", err)
	}
	for {
		p := Path(dir)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.NewConfigError(
		"configuration not found",
		"no .dbgctl/config.yaml found in the current directory or any parent directory",
		"run 'dbgctl init' to create a new configuration",
		nil,
	)
}
