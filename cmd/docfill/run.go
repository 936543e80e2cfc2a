package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"docfill/internal/git"
	"docfill/internal/preview"
	"docfill/internal/session"

	"github.com/spf13/cobra"
)

var (
	dryRun       bool
	changedSince string
	symbolName   string
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Generate, review and insert missing documentation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		deps, err := setup(cmd, rootArg(args))
		if err != nil {
			return err
		}
		defer deps.Close()
		cfg, logger := deps.cfg, deps.logger

		documenter, err := newDocumenter(ctx, cfg, logger)
		if err != nil {
			return err
		}

		var changed []string
		if changedSince != "" {
			changes, err := git.GetChangedFiles(ctx, cfg.Root, changedSince)
			if err != nil {
				return fmt.Errorf("failed to list changed files: %w", err)
			}
			changed = git.Paths(changes)
			fmt.Printf("🔀 %d file(s) changed since %s\n", len(changed), changedSince)
		}

		snapshot, err := cfg.Snapshot()
		if err != nil {
			return err
		}
		runOptions, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode run options: %w", err)
		}

		engineOpts := []preview.Option{preview.WithLogger(logger)}
		if cfg.Interactive && !dryRun {
			engineOpts = append(engineOpts, preview.WithInteractive(preview.NewHuhPrompter()))
		} else if !dryRun {
			engineOpts = append(engineOpts, preview.WithOutput(os.Stdout))
		}
		sess := deps.newSession(changed, runOptions,
			session.WithDocumenter(documenter),
			session.WithPreview(preview.NewEngine(engineOpts...)))
		logger.Debug("session started", slog.String("session", sess.ID))

		// 1. Discover
		fmt.Printf("📂 Scanning directory: %s\n", cfg.Root)
		loaded, err := sess.LoadFiles(ctx, cfg.Root, cfg.Include...)
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("✅ Loaded %d file(s) (%d unreadable)\n", loaded.Loaded, loaded.Failed)

		// 2. Parse
		parsed, err := sess.Parse(ctx)
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("🔍 Extracted %d symbol(s) from %d file(s)\n", parsed.Symbols, parsed.Files)
		printStyles(sess.Styles())

		// 3. Generate
		fmt.Println("🤖 Generating documentation...")
		gen, err := sess.Generate(ctx, session.GenerateOptions{Symbol: symbolName, Override: cfg.Override})
		if errors.Is(err, session.ErrNothingToDocument) {
			fmt.Println("🎉 Nothing to document.")
			return finish(sess, nil)
		}
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("✅ Generated %d of %d (%d empty, %d failed)\n", gen.Generated, gen.Requested, gen.Empty, gen.Failed)
		if gen.Stopped {
			fmt.Println(warnStyle.Render("⚠️  Generation stopped: the provider rejected the credentials"))
		}

		// 4. Review
		if dryRun {
			printPending(sess)
			fmt.Println("📝 Dry run: no files were changed.")
			return finish(sess, nil)
		}
		review, err := sess.Preview(ctx)
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("👀 Reviewed: %d approved, %d rejected, %d skipped\n", review.Approved, review.Rejected, review.Skipped)

		// 5. Apply
		applied, err := sess.Apply(ctx)
		for _, f := range applied.Files {
			printFileResult(f)
		}
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("🎉 Updated %d file(s), %d failed\n", applied.Succeeded(), applied.Failed())
		return finish(sess, nil)
	},
}

func init() {
	f := runCmd.Flags()
	f.BoolVarP(&flags.interactive, "interactive", "i", false, "Review every artifact before it is written")
	f.BoolVar(&flags.override, "override", false, "Replace existing documentation")
	f.BoolVar(&flags.strict, "strict", false, "Abort on the first critical error")
	f.BoolVar(&flags.timestampBackups, "timestamp-backups", false, "Keep every backup under a timestamped name")
	f.IntVar(&flags.batchSize, "batch-size", 0, "Files or symbols processed concurrently")
	f.StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	f.BoolVar(&dryRun, "dry-run", false, "Show generated documentation without writing")
	f.StringVar(&changedSince, "changed-since", "", "Only process files changed since this git ref")
	f.StringVar(&symbolName, "symbol", "", "Only document symbols with this name")
}

// finish prints the issue summary and returns err when it ended the run.
func finish(sess *session.Session, err error) error {
	st := sess.Status()
	printStatus(st)
	printSummary(st.Summary)
	if err == nil {
		return nil
	}
	if session.IsAborted(err) {
		return fmt.Errorf("run aborted: %w", err)
	}
	return err
}
