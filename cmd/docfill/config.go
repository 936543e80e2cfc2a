package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var saveConfigPath string

var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Show the resolved configuration (the API key is never shown)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, rootArg(args))
		if err != nil {
			return err
		}

		if saveConfigPath != "" {
			if err := cfg.Save(saveConfigPath); err != nil {
				return err
			}
			fmt.Printf("💾 Configuration saved to %s\n", saveConfigPath)
			return nil
		}

		snap, err := cfg.Snapshot()
		if err != nil {
			return err
		}
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if cfg.Source != "" {
			fmt.Println(dimStyle.Render("# from " + cfg.Source))
		}
		fmt.Println(string(raw))
		key := "not set"
		if cfg.HasAPIKey() {
			key = "set"
		}
		fmt.Println(dimStyle.Render("# api key: " + key))
		return nil
	},
}

func init() {
	configCmd.Flags().StringVar(&saveConfigPath, "save", "", "Write the configuration, without secrets, to this file")
}
