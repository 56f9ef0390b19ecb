package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/config"
)

func newInitCommand() *cobra.Command {
	var force bool
	var format string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a sample category config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			path, err := runInit(absDir, format, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	cmd.Flags().StringVar(&format, "format", "yaml", "config format: yaml or toml")

	return cmd
}

func runInit(dir, format string, force bool) (string, error) {
	var name string
	switch format {
	case "yaml":
		name = DefaultConfigFile
	case "toml":
		name = "sheetsync.toml"
	default:
		return "", fmt.Errorf("unknown config format %q", format)
	}

	path := filepath.Join(dir, name)
	if fileExists(path) && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(path, config.Sample()); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
