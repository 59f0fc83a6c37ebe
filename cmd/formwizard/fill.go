package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/submission"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func newFillCommand(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "fill <form>",
		Short: "Fill a form in the terminal and print the submitted values",
		Long: `Prompts every step of the form on stderr. Once the last step validates the
submission is logged and its values are written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, ok := tui.ParseOutputFormat(format)
			if !ok {
				return fmt.Errorf("unknown output format %q (json, form, pretty)", format)
			}
			store, err := a.forms()
			if err != nil {
				return err
			}
			def, ok := store.Definition(args[0])
			if !ok {
				return fmt.Errorf("unknown form %q (available: %v)", args[0], store.IDs())
			}
			ctrl, err := wizard.New(def,
				wizard.WithSubmitter(submission.NewLog(a.logger)),
				wizard.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}

			runner := tui.New(
				tui.WithPromptDriver(a.driver),
				tui.WithOutput(cmd.ErrOrStderr()),
				tui.WithOutputFormat(outputFormat),
				tui.WithLocale(a.cfg.Forms.Locale, nil),
				tui.WithLogger(a.logger),
			)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
			defer stop()

			sub, err := runner.Run(ctx, ctrl)
			switch {
			case errors.Is(err, tui.ErrCanceled), errors.Is(err, tui.ErrAborted):
				fmt.Fprintln(cmd.ErrOrStderr(), "form not submitted")
				return nil
			case err != nil:
				return err
			}

			data, err := runner.Encode(sub.Values)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(tui.OutputFormatJSON), "output format of the submitted values (json, form, pretty)")
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
