package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	states, err := deps.Chat.RefreshStatus(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	if len(states) == 0 {
		fmt.Fprintln(deps.Stdout, "No repositories registered with the index.")
		return nil
	}

	for _, s := range states {
		line := fmt.Sprintf("%s  %-8s  %s", s.DatasetID, s.Status, s.URL)
		if s.ErrorMessage != "" {
			line += "  (" + s.ErrorMessage + ")"
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	return nil
}
