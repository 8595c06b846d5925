package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/environment"
	"github.com/biothings/trapi-testing-tools/internal/formatting"
)

func newEnvsCmd() *cobra.Command {
	var output string
	var noHeaders bool

	cmd := &cobra.Command{
		Use:     "envs",
		Aliases: []string{"environments"},
		Short:   "List the environment keys accepted by -e",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return renderEnvironments(cmd.OutOrStdout(), formatting.Options{Format: format, NoHeaders: noHeaders}, environment.New(cfg.Environments))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, plain, json, yaml")
	cmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit the header row")
	return cmd
}

func renderEnvironments(out io.Writer, opts formatting.Options, registry *environment.Registry) error {
	opts.Writer = out
	entries := registry.Entries()

	t := formatting.Table{
		Title:   "Environments",
		Headers: []string{"KEY", "APP", "LEVEL", "URL"},
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{e.Key, e.App, e.Level, e.URL})
	}
	if app := registry.DefaultApp(); app != "" {
		t.Footer = "Default app: " + app
	}
	return formatting.New(opts).Format(t, entries)
}
