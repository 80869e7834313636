package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the "prune data" command.
func (c *PruneDataCmd) Run(deps *Dependencies) error {
	if err := deps.Index.PruneData(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, "Pruned derived data.")
	return nil
}

// Run executes the "prune system" command.
func (c *PruneSystemCmd) Run(deps *Dependencies) error {
	if !c.Metadata && !c.Graph && !c.Vector {
		fmt.Fprintf(deps.Stderr, "error: select at least one of --metadata, --graph, --vector\n")
		return repochat.Errorf(repochat.EINVALID, "no prune targets selected")
	}

	opts := repochat.PruneOptions{
		Metadata: c.Metadata,
		Graph:    c.Graph,
		Vector:   c.Vector,
	}
	if err := deps.Index.PruneSystem(deps.Ctx, opts); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, "Pruned system data.")
	return nil
}
