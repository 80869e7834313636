package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the search command. Unlike chat, the exchange is not
// stored in the history.
func (c *SearchCmd) Run(deps *Dependencies) error {
	searchType := resolveSearchType(deps, c.Type)

	result, err := deps.Index.Search(deps.Ctx, c.Query, searchType, c.Repos)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	if result.Answer != "" {
		fmt.Fprintln(deps.Stdout, result.Answer)
	}
	for _, hit := range result.Hits {
		fmt.Fprintf(deps.Stdout, "  %.2f  %s\n", hit.Score, hit.Path)
	}
	if result.Answer == "" && len(result.Hits) == 0 {
		fmt.Fprintln(deps.Stdout, "No results.")
	}
	return nil
}
