package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/repochat"
	"github.com/fwojciec/repochat/chat"
	repochathttp "github.com/fwojciec/repochat/http"
	"github.com/fwojciec/repochat/lru"
	"github.com/fwojciec/repochat/metrics"
	repochatslog "github.com/fwojciec/repochat/slog"
	"github.com/fwojciec/repochat/sqlite"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; explicit environment wins either way.
	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Configuration. Set before calling Run().
	DBPath  string
	BaseURL string
	APIKey  string

	// SQLite database used by the local services.
	DB *sqlite.DB

	// Index client; kept so pending registrations can be flushed.
	Index *repochathttp.IndexService

	// Metrics for this invocation.
	Metrics *metrics.Registry
}

// NewMain returns a new instance of Main configured from the environment.
func NewMain() *Main {
	return &Main{
		DBPath:  defaultDBPath(),
		BaseURL: envOr("REPOCHAT_API_URL", "http://localhost:8000"),
		APIKey:  os.Getenv("REPOCHAT_API_KEY"),
		Metrics: metrics.NewRegistry(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.Index != nil {
		m.Index.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr)

	deps := &Dependencies{
		Ctx:     ctx,
		Stdout:  stdout,
		Stderr:  stderr,
		Logger:  logger,
		Metrics: m.Metrics,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("repochat"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'repochat --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Open database
	m.DB = sqlite.NewDB(m.DBPath)
	m.DB.Metrics = m.Metrics
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set REPOCHAT_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	// Local services
	deps.DB = m.DB
	deps.Repositories = sqlite.NewRepositoryService(m.DB)
	deps.History = sqlite.NewHistoryService(m.DB)
	deps.Preferences = sqlite.NewPreferenceService(m.DB)

	// Remote index client with logging
	m.Index = repochathttp.NewIndexService(m.BaseURL,
		repochathttp.WithAPIKey(m.APIKey),
		repochathttp.WithMetrics(m.Metrics),
		repochathttp.WithRateLimit(10, 5),
	)
	deps.Index = repochatslog.NewLoggingIndexService(m.Index, logger)

	cache := lru.NewSearchCache(lru.WithMetrics(m.Metrics))
	deps.Chat = chat.NewService(deps.Index, deps.Repositories, deps.History,
		chat.WithCache(cache),
		chat.WithMetrics(m.Metrics),
	)

	return kongCtx.Run(deps)
}

// newLogger builds the CLI logger. Level comes from REPOCHAT_LOG_LEVEL
// (debug, info, warn, error); anything else means info.
func newLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch os.Getenv("REPOCHAT_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func defaultDBPath() string {
	if path := os.Getenv("REPOCHAT_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "repochat.db"
	}
	dir := filepath.Join(home, ".repochat")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "repochat.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// resolveSearchType picks the effective search type: a non-default flag
// wins, otherwise the stored default_search_type preference applies.
func resolveSearchType(deps *Dependencies, flag string) repochat.SearchType {
	st := repochat.SearchType(flag)
	if st != repochat.SearchChunks {
		return st
	}
	if deps.Preferences != nil {
		if v, err := deps.Preferences.GetPreference(deps.Ctx, "default_search_type"); err == nil {
			if pref := repochat.SearchType(v); pref.Valid() {
				return pref
			}
		}
	}
	return st
}
