package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/catalog"
)

func newFormsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Inspect the form catalog",
	}
	cmd.AddCommand(newFormsListCommand(a), newFormsDescribeCommand(a), newFormsLintCommand(a))
	return cmd
}

func newFormsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.forms()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTEPS\tTITLE")
			for _, form := range store.List() {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", form.ID(), form.Definition.Len(), form.Definition.Title())
			}
			return tw.Flush()
		},
	}
}

type describedField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required,omitempty"`
	Rules    []string `json:"rules,omitempty"`
}

type describedStep struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Fields []describedField `json:"fields"`
}

type describedForm struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Source      string          `json:"source"`
	Steps       []describedStep `json:"steps"`
}

func newFormsDescribeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <form>",
		Short: "Print a form's steps, fields and effective rules as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.forms()
			if err != nil {
				return err
			}
			form, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q (available: %v)", args[0], store.IDs())
			}

			out := describedForm{
				ID:          form.ID(),
				Title:       form.Definition.Title(),
				Description: form.Description,
				Source:      form.Source,
			}
			for _, step := range form.Definition.Steps() {
				ds := describedStep{ID: step.ID, Title: step.Title}
				for _, field := range step.Fields {
					df := describedField{
						Name:     field.Name,
						Label:    field.DisplayLabel(),
						Kind:     string(field.Kind),
						Required: field.Required,
					}
					for _, rule := range form.FieldRules(field.Name) {
						df.Rules = append(df.Rules, rule.String())
					}
					ds.Fields = append(ds.Fields, df)
				}
				out.Steps = append(out.Steps, ds)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

func newFormsLintCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [dir]",
		Short: "Check form definitions and report every problem",
		Long:  `Lints the definitions in dir, in forms.dir when no argument is given, or the embedded catalog when neither is set.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Forms.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			fsys := catalog.EmbeddedFS()
			if dir != "" {
				fsys = os.DirFS(dir)
			}

			result, err := catalog.Lint(fsys)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, issue := range result.Issues {
				fmt.Fprintln(out, issue.String())
			}
			fmt.Fprintf(out, "%d file(s), %d form(s), %d error(s), %d warning(s)\n",
				result.Files, result.Forms, len(result.Errors()), len(result.Warnings()))
			if !result.Valid() {
				return fmt.Errorf("lint found %d error(s)", len(result.Errors()))
			}
			return nil
		},
	}
}
