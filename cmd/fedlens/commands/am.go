package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/fedlens/am"
	"github.com/teranos/fedlens/display"
)

func newAmCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "am",
		Short: "Manage fedlens configuration",
		Long: `am - Manage fedlens configuration ("I am")

Display and check fedlens configuration settings.

Configuration sources (in order of precedence):
1. The file given with --config (replaces every source below)
2. Environment variables (FEDLENS_* prefix)
3. Project config (./fedlens.toml, searched up directories)
4. User config (~/.fedlens/fedlens.toml)
5. System config (/etc/fedlens/fedlens.toml)
6. Default values

Examples:
  fedlens am show                    # Show current configuration
  fedlens am show --format json      # Show configuration in JSON format
  fedlens am get repository.base_url # Get specific config value
  fedlens am validate                # Validate current configuration`,
	}

	cmd.AddCommand(newAmShowCmd(opts))
	cmd.AddCommand(newAmGetCmd(opts))
	cmd.AddCommand(newAmValidateCmd(opts))
	cmd.AddCommand(newAmWhereCmd(opts))
	return cmd
}

func newAmShowCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current fedlens configuration from all sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if display.ShouldOutputJSON(cmd) {
				format = "json"
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config to JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))

			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config to YAML: %w", err)
				}
				fmt.Fprintf(out, "# fedlens configuration\n%s", string(data))

			case "toml":
				data, err := toml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config to TOML: %w", err)
				}
				fmt.Fprintf(out, "# fedlens configuration\n%s", string(data))

			default:
				return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")
	return cmd
}

func newAmGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  "Get a specific configuration value using dot notation (e.g., repository.base_url, schema.path)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			v, err := opts.viper()
			if err != nil {
				return err
			}
			if !v.IsSet(key) {
				return fmt.Errorf("configuration key %q not found", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
			return nil
		},
	}
}

func newAmValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		Long:  "Validate that the current fedlens configuration is valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			display.Success(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}
}

func newAmWhereCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "where",
		Short: "Show where configuration is loaded from",
		Long: `Show every effective setting with the source that supplied it.

Sources are the built-in defaults, the system, user and project files,
FEDLENS_* environment variables, or the single file given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				settings []am.SettingInfo
				err      error
			)
			if opts.configPath != "" {
				settings, err = am.IntrospectFile(opts.configPath)
			} else {
				settings, err = am.Introspect()
			}
			if err != nil {
				return fmt.Errorf("failed to get config introspection: %w", err)
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), settings)
			}

			rows := make([][]string, 0, len(settings))
			for _, s := range settings {
				source := string(s.Source)
				if s.SourcePath != "" {
					source += " (" + s.SourcePath + ")"
				}
				rows = append(rows, []string{s.Key, display.Cell(s.Value), source})
			}
			return display.Table(cmd.OutOrStdout(), []string{"KEY", "VALUE", "SOURCE"}, rows)
		},
	}
}
