package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moviebarn/rothbot/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the config file and report validation errors",
		Run: func(cmd *cobra.Command, args []string) {
			path := resolveConfigPath()
			cfg, err := config.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s: ok (%d providers, %d triggers)\n", path, len(cfg.Providers), len(cfg.Triggers))
		},
	})
	return cmd
}
