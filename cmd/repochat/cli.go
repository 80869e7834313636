package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/chat"
	"github.com/fwojciec/repochat/metrics"
	"github.com/fwojciec/repochat/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx          context.Context
	Stdout       io.Writer
	Stderr       io.Writer
	Logger       *slog.Logger
	DB           *sqlite.DB
	Repositories repochat.RepositoryService
	History      repochat.HistoryService
	Preferences  repochat.PreferenceService
	Index        repochat.IndexService
	Chat         *chat.Service
	Metrics      *metrics.Registry
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Add     AddCmd     `cmd:"" help:"Register repositories with the index"`
	List    ListCmd    `cmd:"" help:"List registered repositories"`
	Chat    ChatCmd    `cmd:"" help:"Ask a question and store the exchange"`
	Search  SearchCmd  `cmd:"" help:"Run a one-off search without storing it"`
	History HistoryCmd `cmd:"" help:"Show stored chat history"`
	Sync    SyncCmd    `cmd:"" help:"Re-index a repository"`
	Toggle  ToggleCmd  `cmd:"" help:"Activate or deactivate a repository for searches"`
	Delete  DeleteCmd  `cmd:"" help:"Remove a repository from the index and the local store"`
	Status  StatusCmd  `cmd:"" help:"Show the index API's view of every repository"`
	Prune   PruneCmd   `cmd:"" help:"Prune index backend data"`
	Metrics MetricsCmd `cmd:"" help:"Show client metrics for this invocation"`
}

// AddCmd is the "add" subcommand.
type AddCmd struct {
	URLs   []string `arg:"" help:"Repository URLs to register"`
	Branch string   `short:"b" help:"Branch to index (default branch if unset)"`
	Token  string   `short:"t" help:"Auth token for private repositories"`
}

// ListCmd is the "list" subcommand.
type ListCmd struct {
	All bool `help:"Include inactive repositories"`
}

// ChatCmd is the "chat" subcommand.
type ChatCmd struct {
	Message string   `arg:"" help:"Question to ask"`
	Type    string   `short:"T" default:"CHUNKS" enum:"SUMMARIES,INSIGHTS,CHUNKS,COMPLETION" help:"Search type"`
	Repos   []string `short:"r" help:"Restrict to these dataset IDs (repeatable)"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string   `arg:"" help:"Search query"`
	Type  string   `short:"T" default:"CHUNKS" enum:"SUMMARIES,INSIGHTS,CHUNKS,COMPLETION" help:"Search type"`
	Repos []string `short:"r" help:"Restrict to these dataset IDs (repeatable)"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Limit    int    `default:"20" help:"Maximum messages to show"`
	Offset   int    `help:"Messages to skip"`
	Role     string `enum:",user,assistant" default:"" help:"Only messages with this role"`
	Contains string `help:"Only messages containing this text"`
	Repo     string `help:"Only messages scoped to this dataset ID"`
}

// SyncCmd is the "sync" subcommand.
type SyncCmd struct {
	ID string `arg:"" help:"Dataset ID to re-index"`
}

// ToggleCmd is the "toggle" subcommand.
type ToggleCmd struct {
	ID string `arg:"" help:"Dataset ID"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID    string `arg:"" help:"Dataset ID"`
	Force bool   `help:"Confirm deletion"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// PruneCmd groups the prune subcommands.
type PruneCmd struct {
	Data   PruneDataCmd   `cmd:"" help:"Remove derived data from the index backend"`
	System PruneSystemCmd `cmd:"" help:"Remove selected system data from the index backend"`
}

// PruneDataCmd is the "prune data" subcommand.
type PruneDataCmd struct{}

// PruneSystemCmd is the "prune system" subcommand.
type PruneSystemCmd struct {
	Metadata bool `help:"Prune metadata store"`
	Graph    bool `help:"Prune graph store"`
	Vector   bool `help:"Prune vector store"`
}

// MetricsCmd is the "metrics" subcommand.
type MetricsCmd struct {
	Prometheus bool `help:"Print in Prometheus text exposition format"`
}
