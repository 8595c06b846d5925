package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/formatting"
	"github.com/biothings/trapi-testing-tools/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past test runs",
		Long: `tt test records every run in a local SQLite database. These commands
list past runs, show the queries of one run, and prune old runs.`,
	}
	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryPruneCmd())
	return cmd
}

// openHistory opens the configured history database.
func openHistory() (*history.SQLiteStore, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, &config.ConfigurationError{
			Field:       "history.enabled",
			ErrorType:   "usage",
			Message:     "run history is disabled",
			Suggestions: []string{"set history.enabled: true in config.yaml"},
		}
	}
	return history.NewSQLiteStore(cfg.History.Path)
}

func newHistoryListCmd() *cobra.Command {
	var filter history.ListFilter
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent runs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			return listRuns(cmd.Context(), cmd.OutOrStdout(), store, filter, format)
		},
	}

	cmd.Flags().StringVarP(&filter.Environment, "env", "e", "", "Only runs against this environment")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "Maximum number of runs")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, plain, json, yaml")
	return cmd
}

func listRuns(ctx context.Context, out io.Writer, store history.Store, filter history.ListFilter, format formatting.OutputFormat) error {
	runs, err := store.ListRuns(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	t := formatting.Table{
		Title:   "Test Runs",
		Headers: []string{"ID", "STARTED", "ENVIRONMENT", "PASSED", "FAILED", "ERRORS", "DURATION"},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Environment,
			strconv.Itoa(r.Passed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Errored),
			formatting.Duration(r.Duration),
		})
	}
	return formatting.New(formatting.Options{Format: format, Writer: out}).Format(t, runs)
}

func newHistoryShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the queries of one run",
		Long:  "Show the queries of one run. Any unique prefix of the run id is accepted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := formatting.ParseFormat(output)
			if err != nil {
				return err
			}
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()
			return showRun(cmd.Context(), cmd.OutOrStdout(), store, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, plain, json, yaml")
	return cmd
}

func showRun(ctx context.Context, out io.Writer, store history.Store, id string, format formatting.OutputFormat) error {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}

	t := formatting.Table{
		Title:   fmt.Sprintf("Run %s against %s (%s)", shortID(run.ID), run.Environment, run.BaseURL),
		Headers: []string{"QUERY", "RESULT", "HTTP", "LATENCY", "DETAILS"},
		Footer: fmt.Sprintf("%d passed, %d failed, %d errors in %s",
			run.Passed, run.Failed, run.Errored, formatting.Duration(run.Duration)),
	}
	for _, q := range run.Queries {
		status := ""
		if q.StatusCode != 0 {
			status = strconv.Itoa(q.StatusCode)
		}
		details := q.Error
		if len(q.FailedAssertions) > 0 {
			details = "failed: " + strings.Join(q.FailedAssertions, ", ")
		}
		t.Rows = append(t.Rows, []string{
			q.Name, q.Result, status, fmt.Sprintf("%dms", q.LatencyMs), formatting.Truncate(details, 60),
		})
	}
	return formatting.New(formatting.Options{Format: format, Writer: out}).Format(t, run)
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keep < 0 {
				return fmt.Errorf("--keep must not be negative, got %d", keep)
			}
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return fmt.Errorf("pruning history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🧹 Removed %d runs, kept the latest %d\n", removed, keep)
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "Number of runs to keep")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
