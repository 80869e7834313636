package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the toggle command.
func (c *ToggleCmd) Run(deps *Dependencies) error {
	repo, err := deps.Chat.ToggleRepository(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	state := "inactive"
	if repo.IsActive {
		state = "active"
	}
	fmt.Fprintf(deps.Stdout, "Repository %s is now %s\n", repo.ID, state)
	return nil
}
