package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "List source files and their undocumented symbols",
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

		fmt.Printf("📂 Scanning directory: %s\n", deps.cfg.Root)
		if _, err := sess.LoadFiles(ctx, deps.cfg.Root, deps.cfg.Include...); err != nil {
			return finish(sess, err)
		}
		parsed, err := sess.Parse(ctx)
		if err != nil {
			return finish(sess, err)
		}
		fmt.Printf("🔍 Extracted %d symbol(s) from %d file(s)\n", parsed.Symbols, parsed.Files)
		printStyles(sess.Styles())

		for _, path := range pathsOf(sess.Status()) {
			for _, sym := range undocumented(sess.Symbols(path)) {
				fmt.Printf("   %s:%d %s %s\n", path, sym.Location.Start, sym.Kind, sym.QualifiedName())
			}
		}
		return finish(sess, nil)
	},
}
