package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/environment"
	"github.com/biothings/trapi-testing-tools/internal/formatting"
	"github.com/biothings/trapi-testing-tools/internal/probe"
	"github.com/biothings/trapi-testing-tools/internal/prompt"
)

func newPingCmd() *cobra.Command {
	var all bool
	var output string

	cmd := &cobra.Command{
		Use:     "ping [app]",
		Aliases: []string{"p"},
		Short:   "Check whether API instances are responsive",
		Long: `Check every instance of an application in parallel and report which
ones respond. With no app the default application is checked; --all checks
every configured application. Local instances are never probed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := ""
			if len(args) == 1 {
				app = args[0]
			}
			return runPing(cmd.Context(), cmd.OutOrStdout(), app, all, output)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Check all instances of all apps")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, plain, json, yaml")
	return cmd
}

// pingTargets picks the applications to probe. An empty name or "default"
// means the default application.
func pingTargets(registry *environment.Registry, name string, all bool) ([]config.App, error) {
	if all {
		return registry.Apps(), nil
	}
	if name == "" || name == "default" {
		name = registry.DefaultApp()
	}
	app, ok := registry.App(name)
	if !ok {
		return nil, &environment.UnknownAppError{App: name, Valid: registry.AppNames()}
	}
	return []config.App{app}, nil
}

func runPing(ctx context.Context, out io.Writer, name string, all bool, output string) error {
	format, err := formatting.ParseFormat(output)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	apps, err := pingTargets(environment.New(cfg.Environments), name, all)
	if err != nil {
		return err
	}

	opts := probe.FromConfig(cfg.Probe)
	human := format == formatting.FormatTable || format == formatting.FormatPlain
	if human && prompt.Interactive() {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		s.Suffix = " Probing instances..."
		opts = append(opts, probe.WithObserver(progressObserver(s)))
		s.Start()
		defer s.Stop()
	}

	report := probe.NewProber(opts...).Probe(ctx, apps)
	return renderProbeReport(out, format, report)
}

// progressObserver counts finished probes into the spinner suffix.
func progressObserver(s *spinner.Spinner) func(probe.Result) {
	var mu sync.Mutex
	done := 0
	return func(r probe.Result) {
		mu.Lock()
		done++
		n := done
		mu.Unlock()

		s.Lock()
		s.Suffix = fmt.Sprintf(" Probing instances... %d done (last: %s.%s)", n, r.App, r.Instance)
		s.Unlock()
	}
}

func renderProbeReport(out io.Writer, format formatting.OutputFormat, report probe.Report) error {
	f := formatting.New(formatting.Options{Format: format, Writer: out})
	switch format {
	case formatting.FormatJSON, formatting.FormatYAML:
		return f.Format(formatting.Table{}, report)
	case formatting.FormatPlain:
		t := formatting.Table{Headers: []string{"APP", "INSTANCE", "RESPONSIVE", "STATUS", "LATENCY", "URL"}}
		for _, env := range report.Environments {
			for _, r := range env.Results {
				t.Rows = append(t.Rows, []string{
					r.App, r.Instance, fmt.Sprintf("%t", r.Responsive), plainStatus(r), fmt.Sprintf("%dms", r.LatencyMs), r.URL,
				})
			}
		}
		return f.Format(t, nil)
	}

	for _, env := range report.Environments {
		tally := env.Tally()
		if env.AllResponsive() {
			tally = text.FgGreen.Sprint(tally)
		} else {
			tally = text.FgRed.Sprint(tally)
		}

		t := formatting.Table{
			Title:   env.App,
			Headers: []string{"INSTANCE", "STATUS", "LATENCY", "URL"},
			Footer:  fmt.Sprintf("%s: %s\n", env.App, tally),
		}
		for _, r := range env.Results {
			status := text.FgRed.Sprint("✗ " + plainStatus(r))
			if r.Responsive {
				status = text.FgGreen.Sprint("✓ " + plainStatus(r))
			}
			t.Rows = append(t.Rows, []string{r.Instance, status, fmt.Sprintf("%dms", r.LatencyMs), r.URL})
		}
		if err := f.Format(t, nil); err != nil {
			return err
		}
	}
	return nil
}

func plainStatus(r probe.Result) string {
	if r.Responsive {
		return fmt.Sprintf("%d", r.StatusCode)
	}
	return r.Error
}
