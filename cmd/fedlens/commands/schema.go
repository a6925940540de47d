package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/fedlens/am"
	"github.com/teranos/fedlens/display"
	"github.com/teranos/fedlens/logger"
	"github.com/teranos/fedlens/model"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Check or watch a model schema",
		Long: `Check a model schema file: every model, attribute and lens segment must
resolve, extends must not loop and the requires constraint must hold for
this build. The file defaults to schema.path.`,
	}
	cmd.AddCommand(newSchemaCheckCmd(opts))
	cmd.AddCommand(newSchemaWatchCmd(opts))
	return cmd
}

func newSchemaCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Check a schema file and list its models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := schemaPath(opts, args)
			if err != nil {
				return err
			}
			regs, err := buildSchema(path, cfg)
			if err != nil {
				return err
			}
			return writeModels(cmd, regs)
		},
	}
}

func newSchemaWatchCmd(opts *rootOptions) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Re-check a schema file whenever it changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := schemaPath(opts, args)
			if err != nil {
				return err
			}
			log := logger.ComponentLogger("fedlens.schema")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchSchema(ctx, cmd.OutOrStdout(), path, cfg, debounce, log)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Wait this long after the last write before checking")
	return cmd
}

// watchSchema checks path once, then again after every change, until ctx
// is done. Failed checks are reported and watching continues.
func watchSchema(ctx context.Context, w io.Writer, path string, cfg *am.Config, debounce time.Duration, log *zap.SugaredLogger) error {
	report := func(string) error {
		regs, err := buildSchema(path, cfg)
		if err != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			log.Warnw("Schema check failed", logger.FieldPath, path, logger.FieldError, err)
			return nil
		}
		display.Success(w, "%s: %d models", path, len(regs))
		return nil
	}
	_ = report(path)

	fw, err := am.NewFileWatcher(path, debounce, log)
	if err != nil {
		return err
	}
	fw.OnChange(report)
	fw.Start()
	log.Infow("Watching schema", logger.FieldPath, path)

	<-ctx.Done()
	return fw.Stop()
}

func schemaPath(opts *rootOptions, args []string) (*am.Config, string, error) {
	cfg, err := opts.config()
	if err != nil {
		return nil, "", err
	}
	if len(args) == 1 {
		return cfg, args[0], nil
	}
	return cfg, cfg.Schema.Path, nil
}

// buildSchema builds path against a store with no session. The store
// supplies the base URL to uris_to_ids and a target to load_model; nothing
// is read or written.
func buildSchema(path string, cfg *am.Config) ([]*model.Registry, error) {
	s, err := model.LoadSchema(path)
	if err != nil {
		return nil, err
	}
	store := model.NewStore(nil, cfg.Repository.BaseURL, logger.ComponentLogger("model"))
	return s.Build(store)
}

type modelSummary struct {
	Model      string   `json:"model"`
	Extends    string   `json:"extends,omitempty"`
	Attributes []string `json:"attributes"`
	Required   []string `json:"required"`
}

func writeModels(cmd *cobra.Command, regs []*model.Registry) error {
	summaries := make([]modelSummary, 0, len(regs))
	for _, r := range regs {
		s := modelSummary{Model: r.Name(), Attributes: r.Names(), Required: r.Required()}
		if p := r.Parent(); p != nil {
			s.Extends = p.Name()
		}
		summaries = append(summaries, s)
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), summaries)
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		required := map[string]bool{}
		for _, name := range s.Required {
			required[name] = true
		}
		names := make([]string, len(s.Attributes))
		for i, name := range s.Attributes {
			names[i] = name
			if required[name] {
				names[i] += "*"
			}
		}
		extends := s.Extends
		if extends == "" {
			extends = "-"
		}
		rows = append(rows, []string{s.Model, extends, strings.Join(names, ", ")})
	}
	if err := display.Table(cmd.OutOrStdout(), []string{"MODEL", "EXTENDS", "ATTRIBUTES"}, rows); err != nil {
		return err
	}
	display.Success(cmd.OutOrStdout(), "Schema is valid (* marks required attributes)")
	return nil
}
