package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration (defaults, file, env, flags)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := formatOf(cmd)
		if format == formatText {
			format = formatYAML
		}
		return render(cmd.OutOrStdout(), format, "", cfg, func(w io.Writer) error {
			return yaml.NewEncoder(w).Encode(cfg)
		})
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if used := v.ConfigFileUsed(); used != "" {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), used)
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "(no config file; using defaults and environment)")
		return err
	},
}

func init() {
	addFormatFlag(configShowCmd, false)
	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
