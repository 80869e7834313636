package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the sync command.
func (c *SyncCmd) Run(deps *Dependencies) error {
	fmt.Fprintf(deps.Stdout, "Syncing %s...\n", c.ID)

	repo, err := deps.Chat.SyncRepository(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Synced %s (%s)\n", repo.ID, repo.Status)
	return nil
}
