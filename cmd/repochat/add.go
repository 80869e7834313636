package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the add command.
func (c *AddCmd) Run(deps *Dependencies) error {
	reqs := make([]repochat.AddRequest, len(c.URLs))
	for i, url := range c.URLs {
		reqs[i] = repochat.AddRequest{
			URL:       url,
			Branch:    c.Branch,
			AuthToken: c.Token,
		}
	}

	repos, err := deps.Chat.AddRepositories(deps.Ctx, reqs)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	for _, repo := range repos {
		fmt.Fprintf(deps.Stdout, "Added %s (%s, %s)\n", repo.URL, repo.ID, repo.Status)
	}
	return nil
}
