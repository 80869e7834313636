package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the chat command.
func (c *ChatCmd) Run(deps *Dependencies) error {
	searchType := resolveSearchType(deps, c.Type)

	ex, err := deps.Chat.SendMessage(deps.Ctx, c.Message, searchType, c.Repos)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	fmt.Fprintln(deps.Stdout, ex.Answer.Text)
	if len(ex.Result.Hits) > 0 {
		fmt.Fprintln(deps.Stdout)
		for _, hit := range ex.Result.Hits {
			fmt.Fprintf(deps.Stdout, "  %.2f  %s\n", hit.Score, hit.Path)
		}
	}
	if ex.Cached {
		fmt.Fprintln(deps.Stderr, "(cached)")
	}
	return nil
}
