package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/diffscope/internal/config"
	"gopkg.in/yaml.v3"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initFile, _ := cmd.Flags().GetBool("init")
			return handleConfig(cmd, initFile)
		},
	}

	cmd.Flags().Bool("init", false, "write the effective configuration to the config file")

	return cmd
}

// handleConfig implements the config command logic
func handleConfig(cmd *cobra.Command, initFile bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if initFile {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration written")
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
