// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors gives every command-line failure a consistent shape: a
// short title for humans, a longer detail, an actionable suggestion, and
// an optional wrapped cause. FatalError renders one and exits.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
)

// Kind classifies a CLIError for JSON consumers and exit-code selection.
type Kind string

const (
	KindConfig     Kind = "config"
	KindInput      Kind = "input"
	KindPermission Kind = "permission"
	KindNetwork    Kind = "network"
	KindInternal   Kind = "internal"
	KindNotFound   Kind = "not_found"
)

// CLIError is a user-facing error with enough structure to render either
// as a readable message or as a JSON object for machine consumers.
type CLIError struct {
	Kind       Kind   `json:"kind"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Cause      error  `json:"-"`
}

func (e *CLIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

func (e *CLIError) Unwrap() error { return e.Cause }

func newError(kind Kind, title, detail, suggestion string, cause error) *CLIError {
	return &CLIError{Kind: kind, Title: title, Detail: detail, Suggestion: suggestion, Cause: cause}
}

// NewConfigError reports a problem loading or validating configuration.
func NewConfigError(title, detail, suggestion string, cause error) error {
	return newError(KindConfig, title, detail, suggestion, cause)
}

// NewInputError reports invalid operator input (a bad query, a malformed
// flag value).
func NewInputError(title, detail, suggestion string, cause error) error {
	return newError(KindInput, title, detail, suggestion, cause)
}

// NewPermissionError reports a filesystem/permission failure.
func NewPermissionError(title, detail, suggestion string, cause error) error {
	return newError(KindPermission, title, detail, suggestion, cause)
}

// NewNetworkError reports a failure reaching a remote metrics/serve endpoint.
func NewNetworkError(title, detail, suggestion string, cause error) error {
	return newError(KindNetwork, title, detail, suggestion, cause)
}

// NewInternalError reports a bug: something the caller should never be
// able to trigger through normal use.
func NewInternalError(title, detail, suggestion string, cause error) error {
	return newError(KindInternal, title, detail, suggestion, cause)
}

// NewNotFoundError reports a missing module, class, or trace instance.
func NewNotFoundError(title, detail, suggestion string, cause error) error {
	return newError(KindNotFound, title, detail, suggestion, cause)
}

// exitFunc is swapped out in tests to avoid terminating the test binary.
var exitFunc = os.Exit

// FatalError prints err and exits with a non-zero status. If asJSON is
// true, it emits the structured CLIError form on stderr as a single JSON
// object; otherwise it prints a human-readable title/detail/suggestion
// block. A plain (non-*CLIError) err is wrapped as an internal error.
func FatalError(err error, asJSON bool) {
	cliErr, ok := err.(*CLIError)
	if !ok {
		cliErr = newError(KindInternal, err.Error(), "", "", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stderr)
		enc.Encode(cliErr)
		exitFunc(1)
		return
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Title)
	if cliErr.Detail != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", cliErr.Detail)
	}
	if cliErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", cliErr.Suggestion)
	}
	exitFunc(1)
}
