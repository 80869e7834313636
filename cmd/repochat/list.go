package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	filter := repochat.RepositoryFilter{}
	if !c.All {
		isActive := true
		filter.IsActive = &isActive
	}

	repos, err := deps.Repositories.FindRepositories(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	if len(repos) == 0 {
		fmt.Fprintln(deps.Stdout, "No repositories found. Use 'repochat add' to register one.")
		return nil
	}

	for _, r := range repos {
		line := fmt.Sprintf("%s  %-8s  %s", r.ID, r.Status, r.URL)
		if r.Branch != "" {
			line += "@" + r.Branch
		}
		if r.Status == repochat.StatusError && r.ErrorMessage != "" {
			line += "  (" + r.ErrorMessage + ")"
		}
		fmt.Fprintln(deps.Stdout, line)
	}

	return nil
}
