// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/kraklabs/dbgctl/internal/errors"
)

const bashCompletion = `_dbgctl_completions() {
  local cur prev
  COMPREPLY=()
  cur="${COMP_WORDS[COMP_CWORD]}"
  if [ "$COMP_CWORD" -eq 1 ]; then
    COMPREPLY=( $(compgen -W "query show open close classparam boot serve init completion" -- "$cur") )
  fi
}
complete -F _dbgctl_completions dbgctl
`

const zshCompletion = `#compdef dbgctl
_dbgctl() {
  _arguments '1: :(query show open close classparam boot serve init completion)'
}
_dbgctl
`

const fishCompletion = `complete -c dbgctl -n "__fish_use_subcommand" -a "query show open close classparam boot serve init completion"
`

// runCompletion executes the 'completion' CLI command, printing a static
// shell-completion script for the subcommand names.
func runCompletion(args []string, globals GlobalFlags) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: dbgctl completion <bash|zsh|fish>")
		os.Exit(1)
	}
	var script string
	switch args[0] {
	case "bash":
		script = bashCompletion
	case "zsh":
		script = zshCompletion
	case "fish":
		script = fishCompletion
	default:
		errors.FatalError(errors.NewInputError("unknown shell", fmt.Sprintf("%q is not one of bash, zsh, fish", args[0]), "pass bash, zsh, or fish", nil), globals.JSON)
		return
	}
	fmt.Print(script)
}
