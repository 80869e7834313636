package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if !c.Force {
		fmt.Fprintf(deps.Stderr, "error: use --force to confirm deletion\n")
		return repochat.Errorf(repochat.EINVALID, "use --force to confirm deletion")
	}

	if err := deps.Chat.DeleteRepository(deps.Ctx, c.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted %s\n", c.ID)
	return nil
}
