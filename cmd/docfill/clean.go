package main

import (
	"fmt"

	"docfill/internal/session"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Delete backups recorded in the ledger",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		deps, err := setup(cmd, rootArg(args))
		if err != nil {
			return err
		}
		defer deps.Close()

		sess := deps.newSession(nil, nil)
		res, err := sess.Clear(ctx, session.ClearOptions{Backups: true})
		for _, rec := range res.Backups {
			fmt.Printf("🧹 Removed %s\n", rec.BackupPath)
		}
		if err != nil {
			return err
		}
		fmt.Printf("✅ Removed %d backup(s)\n", len(res.Backups))
		return nil
	},
}
