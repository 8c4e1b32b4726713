package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

func addFormatFlag(cmd *cobra.Command, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	flags.StringP("format", "f", formatText, "output format: text, json, yaml or toml")
}

// render writes v in the requested format. TOML documents must be tables,
// so a non-empty key wraps v as {key = v}. text renders the human view.
func render(w io.Writer, format, key string, v any, text func(io.Writer) error) error {
	switch format {
	case "", formatText:
		return text(w)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatTOML:
		if key != "" {
			v = map[string]any{key: v}
		}
		return toml.NewEncoder(w).Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want text, json, yaml or toml)", format)
	}
}

func formatOf(cmd *cobra.Command) string {
	f, _ := cmd.Flags().GetString("format")
	return f
}
