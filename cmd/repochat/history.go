package main

import (
	"fmt"

	"github.com/fwojciec/repochat"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	filter := repochat.HistoryFilter{
		Limit:  c.Limit,
		Offset: c.Offset,
	}
	if c.Role != "" {
		filter.Role = &c.Role
	}
	if c.Contains != "" {
		filter.Text = &c.Contains
	}
	if c.Repo != "" {
		filter.RepositoryID = &c.Repo
	}

	msgs, err := deps.History.FindMessages(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	total, err := deps.History.CountMessages(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", repochat.ErrorMessage(err))
		return err
	}

	if total == 0 {
		fmt.Fprintln(deps.Stdout, "No messages found.")
		return nil
	}

	for _, m := range msgs {
		fmt.Fprintf(deps.Stdout, "%s  %-9s  %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Role, m.Text)
	}
	fmt.Fprintf(deps.Stdout, "Showing %d of %d messages\n", len(msgs), total)

	return nil
}
