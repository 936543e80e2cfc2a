package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rollbackRoot string

var rollbackCmd = &cobra.Command{
	Use:   "rollback <file>...",
	Short: "Restore files from their most recent backup",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		deps, err := setup(cmd, filepath.Clean(rollbackRoot))
		if err != nil {
			return err
		}
		defer deps.Close()

		sess := deps.newSession(nil, nil)
		failed := 0
		for _, arg := range args {
			path := filepath.Clean(arg)
			rec, err := sess.Rollback(ctx, path)
			if err != nil {
				failed++
				fmt.Println(errorStyle.Render(fmt.Sprintf("✖ %s: %v", path, err)))
				continue
			}
			fmt.Printf("⏪ Restored %s from %s\n", path, rec.BackupPath)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d file(s) could not be restored", failed, len(args))
		}
		return nil
	},
}

func init() {
	rollbackCmd.Flags().StringVar(&rollbackRoot, "root", ".", "Project root holding the ledger")
}
