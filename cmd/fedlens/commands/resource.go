package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/fedlens/display"
	"github.com/teranos/fedlens/errors"
	"github.com/teranos/fedlens/ldp"
	"github.com/teranos/fedlens/lens"
	"github.com/teranos/fedlens/logger"
	"github.com/teranos/fedlens/model"
)

func newGetCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Show a resource through a model",
		Long: `Read a resource and show every attribute of the model's aggregate view.

Nested resources show as their identifiers, RDF terms in N-Triples syntax
and XML values as markup.`,
		Example: `  fedlens get document /r1
  fedlens get document /r1 --format yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if display.ShouldOutputJSON(cmd) {
				format = "json"
			}
			return withEnv(cmd.Context(), opts, func(e *env) error {
				rec, err := e.find(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				return writeRecord(cmd.OutOrStdout(), rec, format)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")
	return cmd
}

func writeRecord(w io.Writer, rec *model.Record, format string) error {
	switch format {
	case "json":
		return display.OutputJSON(w, recordView(rec))
	case "yaml":
		data, err := yaml.Marshal(display.Value(recordView(rec)))
		if err != nil {
			return fmt.Errorf("failed to marshal record to YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "table":
		attrs := rec.Attributes()
		rows := [][]string{{model.IDAttribute, rec.ID()}}
		for _, name := range rec.AttributeNames() {
			rows = append(rows, []string{name, display.Cell(attrs[name])})
		}
		return display.Table(w, []string{"ATTRIBUTE", "VALUE"}, rows)
	default:
		return fmt.Errorf("unsupported format: %s (supported: table, json, yaml)", format)
	}
}

func recordView(rec *model.Record) map[string]interface{} {
	view := map[string]interface{}(rec.Attributes())
	view[model.IDAttribute] = rec.ID()
	return view
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model> <id> <name=value>...",
		Short: "Update attributes of a resource",
		Long: `Assign attributes of a resource and save it.

name=value sets a single value and name= clears it. name[]=... sets a
multiple-valued attribute from a shell-quoted list; name[]= empties it.
Only the named attributes are written; everything else in the resource's
graph is kept.`,
		Example: `  fedlens set document /r1 title="A new title"
  fedlens set document /r1 'subjects[]=maps "nautical charts"'`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), opts, func(e *env) error {
				rec, err := e.find(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if err := saveRecord(cmd, e, rec, attrs); err != nil {
					return err
				}
				display.Success(cmd.OutOrStdout(), "Saved %s %s", rec.ModelName(), rec.ID())
				return nil
			})
		},
	}
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <model> [name=value]...",
		Short: "Create a resource from attributes",
		Long: `Build a new resource through the model's lenses and save it in the
configured container. Assignments take the same form as for set. The new
identifier is printed on success.`,
		Example: `  fedlens create document title="Charts of the Baltic" 'subjects[]=maps charts'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return withEnv(cmd.Context(), opts, func(e *env) error {
				r, err := e.registry(args[0])
				if err != nil {
					return err
				}
				rec := r.New()
				if err := saveRecord(cmd, e, rec, attrs); err != nil {
					return err
				}
				if display.ShouldOutputJSON(cmd) {
					return display.OutputJSON(cmd.OutOrStdout(), map[string]string{model.IDAttribute: rec.ID()})
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID())
				return nil
			})
		},
	}
}

func saveRecord(cmd *cobra.Command, e *env, rec *model.Record, attrs lens.Attributes) error {
	if err := rec.Assign(attrs); err != nil {
		return errors.WithHintf(err, "attributes of %s: %s", rec.ModelName(), strings.Join(rec.AttributeNames(), ", "))
	}
	ctx := logger.WithComponent(cmd.Context(), "fedlens."+cmd.Name())
	return rec.Save(ctx, e.repo)
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <id>",
		Short: "Delete a resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), opts, func(e *env) error {
				rec, err := e.find(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				if err := rec.Destroy(cmd.Context(), e.repo); err != nil {
					return err
				}
				display.Success(cmd.OutOrStdout(), "Deleted %s %s", rec.ModelName(), rec.ID())
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [container]",
		Short: "List resources of the local repository",
		Long: `List the identifiers of the resources directly inside a container of the
sqlite backend. The container defaults to repository.container.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), opts, func(e *env) error {
				local, ok := e.repo.(*ldp.SQLiteRepository)
				if !ok {
					return errors.WithHint(
						errors.NewInvalidRequestError("the %s backend cannot list containers", e.cfg.Repository.Backend),
						"listing is only supported by the sqlite backend")
				}
				container := e.cfg.Repository.Container
				if len(args) == 1 {
					container = args[0]
				}
				ids, err := local.List(cmd.Context(), ldp.NormalizeID(container))
				if err != nil {
					return err
				}
				if display.ShouldOutputJSON(cmd) {
					return display.OutputJSON(cmd.OutOrStdout(), ids)
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
}

// parseAssignments turns name=value arguments into attribute values. An
// empty value is nil. name[]=list splits list with shell quoting rules
// into a sequence.
func parseAssignments(args []string) (lens.Attributes, error) {
	attrs := lens.Attributes{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, errors.WithHint(
				errors.NewInvalidRequestError("invalid assignment %q", arg),
				"assignments look like name=value or name[]=list")
		}

		if list, multiple := strings.CutSuffix(name, "[]"); multiple {
			words, err := shellquote.Split(value)
			if err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "invalid list for %s", list), errors.ErrInvalidRequest)
			}
			seq := make([]interface{}, len(words))
			for i, w := range words {
				seq[i] = w
			}
			attrs[list] = seq
			continue
		}

		if value == "" {
			attrs[name] = nil
		} else {
			attrs[name] = value
		}
	}
	return attrs, nil
}
