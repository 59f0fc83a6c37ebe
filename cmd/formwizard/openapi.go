package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/openapi"
)

func newOpenAPICommand(a *app) *cobra.Command {
	var (
		info   = openapi.Info{Title: "Partner intake forms", Version: "1.0.0"}
		output string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document of the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.forms()
			if err != nil {
				return err
			}
			doc, err := openapi.Describe(commandContext(cmd), store, info)
			if err != nil {
				return err
			}
			data, err := openapi.MarshalJSON(doc)
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&info.Title, "title", info.Title, "API title")
	cmd.Flags().StringVar(&info.Version, "api-version", info.Version, "API version")
	cmd.Flags().StringVar(&info.ServerURL, "server-url", "", "base URL listed under servers")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
