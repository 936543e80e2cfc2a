package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"docfill/internal/backup"
	"docfill/internal/batch"
	"docfill/internal/config"
	"docfill/internal/metrics"
	"docfill/internal/oracle"
	"docfill/internal/report"
	"docfill/internal/session"
	"docfill/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "docfill",
		Short:         "Fill in missing documentation with an LLM, safely",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	verbose bool
	flags   cliFlags
)

// cliFlags holds values of flags that override the resolved configuration.
type cliFlags struct {
	provider         string
	model            string
	baseURL          string
	ledger           string
	metricsFile      string
	include          []string
	exclude          []string
	languages        []string
	batchSize        int
	interactive      bool
	override         bool
	skipErrors       bool
	strict           bool
	timestampBackups bool
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✖ "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&flags.ledger, "ledger", "", "Path to the SQLite ledger (relative to the project root)")
	pf.StringVar(&flags.provider, "provider", "", "Oracle provider (gemini, openai)")
	pf.StringVar(&flags.model, "model", "", "Model name")
	pf.StringVar(&flags.baseURL, "base-url", "", "Custom provider endpoint")
	pf.StringSliceVar(&flags.include, "include", nil, "Gitignore-style patterns of files to process")
	pf.StringSliceVar(&flags.exclude, "exclude", nil, "Gitignore-style patterns of files to skip")
	pf.StringSliceVar(&flags.languages, "languages", nil, "Languages to process (go, python, javascript, typescript)")
	pf.BoolVar(&flags.skipErrors, "skip-errors", false, "Record malformed files and continue")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// signalContext cancels on interrupt so in-flight batches drain and files
// already applied stay applied.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return filepath.Clean(args[0])
	}
	return "."
}

// loadConfig resolves the configuration of root: flags > environment >
// config file > defaults.
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Root = root

	set := cmd.Flags().Changed
	if set("provider") {
		cfg.Provider = flags.provider
	}
	if set("model") {
		cfg.Model = flags.model
	}
	if set("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if set("ledger") {
		cfg.LedgerPath = flags.ledger
	}
	if set("metrics-file") {
		cfg.MetricsFile = flags.metricsFile
	}
	if set("include") {
		cfg.Include = flags.include
	}
	if set("exclude") {
		cfg.Exclude = flags.exclude
	}
	if set("languages") {
		cfg.Languages = flags.languages
	}
	if set("batch-size") {
		cfg.BatchSize = flags.batchSize
	}
	if set("interactive") {
		cfg.Interactive = flags.interactive
	}
	if set("override") {
		cfg.Override = flags.override
	}
	if set("skip-errors") {
		cfg.SkipErrors = flags.skipErrors
	}
	if set("strict") {
		cfg.Strict = flags.strict
	}
	if set("timestamp-backups") {
		cfg.TimestampBackups = flags.timestampBackups
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openLedger opens the SQLite ledger. An empty path disables it.
func openLedger(cfg *config.Config) (*storage.SQLiteStore, error) {
	if cfg.LedgerPath == "" {
		return nil, nil
	}
	path := cfg.LedgerPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Root, path)
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return store, nil
}

func newDocumenter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*oracle.Generator, error) {
	if !cfg.HasAPIKey() {
		return nil, report.Newf(report.CategoryOracle, "", "",
			"no API key configured for provider %s (set DOCFILL_API_KEY)", cfg.Provider).Critical()
	}
	provider, err := oracle.NewOracle(ctx, oracle.ProviderOptions{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}
	client := oracle.NewClient(provider, oracle.ClientOptions{
		CallsPerWindow: cfg.RateLimit,
		Window:         cfg.RateWindow(),
		Timeout:        cfg.Timeout(),
		MaxAttempts:    uint(cfg.MaxAttempts),
		Logger:         logger,
	})
	return oracle.NewGenerator(client, oracle.Options{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}, logger), nil
}

// sessionDeps are the collaborators shared by every subcommand.
type sessionDeps struct {
	cfg     *config.Config
	logger  *slog.Logger
	ledger  *storage.SQLiteStore
	metrics *metrics.Metrics
}

func (d sessionDeps) Close() {
	if d.ledger != nil {
		if err := d.ledger.Close(); err != nil {
			d.logger.Warn("failed to close ledger", slog.String("error", err.Error()))
		}
	}
	if d.cfg.MetricsFile != "" {
		if err := d.metrics.WriteTextfile(d.cfg.MetricsFile); err != nil {
			d.logger.Warn("failed to write metrics", slog.String("error", err.Error()))
		}
	}
}

func setup(cmd *cobra.Command, root string) (sessionDeps, error) {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return sessionDeps{}, err
	}
	logger := newLogger()
	ledger, err := openLedger(cfg)
	if err != nil {
		return sessionDeps{}, err
	}
	return sessionDeps{cfg: cfg, logger: logger, ledger: ledger, metrics: metrics.New()}, nil
}

// newSession builds a session over the shared collaborators. extra options
// are applied last.
func (d sessionDeps) newSession(changed []string, runOptions []byte, extra ...session.Option) *session.Session {
	opts := []session.Option{
		session.WithOptions(session.Options{
			BatchSize:  d.cfg.BatchSize,
			Override:   d.cfg.Override,
			SkipErrors: d.cfg.SkipErrors,
			Policy:     report.Policy{Strict: d.cfg.Strict},
			Exclude:    d.cfg.Exclude,
			Languages:  d.cfg.Languages,
			Changed:    changed,
			RunOptions: runOptions,
		}),
		session.WithBackups(backup.NewStore(
			backup.WithTimestamps(d.cfg.TimestampBackups),
			backup.WithLogger(d.logger))),
		session.WithMetrics(d.metrics),
		session.WithLogger(d.logger),
	}
	if d.ledger != nil {
		opts = append(opts, session.WithLedger(d.ledger))
	}
	if d.cfg.MemoryCeilingMB > 0 {
		opts = append(opts, session.WithWatchdog(batch.NewWatchdog(uint64(d.cfg.MemoryCeilingMB)<<20, d.logger)))
	}
	return session.New(append(opts, extra...)...)
}
