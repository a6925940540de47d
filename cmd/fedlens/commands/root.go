// Package commands implements the fedlens command tree.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teranos/fedlens/am"
	"github.com/teranos/fedlens/logger"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbosity  int
	jsonLogs   bool
	json       bool

	cfg *am.Config
}

// NewRootCmd builds the fedlens command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "fedlens",
		Short: "fedlens - Bidirectional lenses over Linked Data Platform resources",
		Long: `fedlens - Bidirectional lenses over Linked Data Platform resources.

fedlens maps model attributes onto the RDF graphs of LDP resources through
composable lenses declared in a YAML schema. Reads go through each lens's
get direction and writes through its put direction, so triples the schema
does not mention survive every save.

Available commands:
  am      - Manage fedlens configuration ("I am")
  get     - Show a resource through a model
  set     - Update attributes of a resource
  create  - Create a resource from attributes
  delete  - Delete a resource
  list    - List resources of the local repository
  schema  - Check or watch a model schema

Examples:
  fedlens am show                       # Show current configuration
  fedlens schema check                  # Validate schema.yaml
  fedlens get document /r1              # Show resource /r1 as a document
  fedlens set document /r1 title="New"  # Update one attribute`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			jsonLogs := opts.jsonLogs
			if cfg, err := opts.config(); err == nil && cfg.Log.JSON {
				jsonLogs = true
			}
			if err := logger.Initialize(jsonLogs, opts.verbosity); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Read configuration from this file only")
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	cmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "Write logs as JSON")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Write command output as JSON")

	cmd.AddCommand(newAmCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newSetCmd(opts))
	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newSchemaCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// config loads the configuration once per invocation: the --config file
// alone when given, the merged cascade otherwise.
func (o *rootOptions) config() (*am.Config, error) {
	if o.cfg != nil {
		return o.cfg, nil
	}
	var (
		cfg *am.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = am.LoadFromFile(o.configPath)
	} else {
		cfg, err = am.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg
	return cfg, nil
}

// viper returns the Viper instance config was read from.
func (o *rootOptions) viper() (*viper.Viper, error) {
	if o.configPath != "" {
		return am.FileViper(o.configPath)
	}
	if _, err := am.Load(); err != nil {
		return nil, err
	}
	return am.GetViper(), nil
}
