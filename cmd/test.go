package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/disposition"
	"github.com/biothings/trapi-testing-tools/internal/environment"
	"github.com/biothings/trapi-testing-tools/internal/history"
	"github.com/biothings/trapi-testing-tools/internal/prompt"
	"github.com/biothings/trapi-testing-tools/internal/testing"
	"github.com/biothings/trapi-testing-tools/pkg/logging"
	querysuite "github.com/biothings/trapi-testing-tools/queries"
)

// allRoutineQueries is the selection used by --all.
const allRoutineQueries = testing.RoutineDir + "/**"

type testOptions struct {
	env     string
	all     bool
	debug   bool
	view    bool
	noView  bool
	save    string
	noSave  bool
	pipe    bool
	verbose bool
	quiet   bool
	report  string
	watch   bool
}

// selector asks the user to pick from a list. prompt.Readline implements it.
type selector interface {
	Select(question string, options []string) (string, error)
	MultiSelect(question string, options []string) ([]string, error)
}

func newTestCmd() *cobra.Command {
	opts := &testOptions{}

	cmd := &cobra.Command{
		Use:     "test [query...]",
		Aliases: []string{"t"},
		Short:   "Run queries against an environment",
		Long: `Run one or more query files against an environment and check the
responses against each file's assertions.

Queries are named by their path under the queries directory without the
extension. A directory runs every query beneath it, and glob patterns are
matched against query names:

  tt test -e bte.ci routine/sync/general
  tt test -e bte.ci routine
  tt test -e bte.ci 'routine/*/general'

With no queries or no -e on a terminal, tt asks for them and prints a hint
to re-run the same selection without prompts.

By default tt asks after each query whether to view and save the response
body. -v/-V and -s/-S answer those questions up front, and -p writes the
body of a single query to stdout for piping.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd.Context(), opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.env, "env", "e", "", "Environment to use, e.g. bte.prod")
	f.BoolVarP(&opts.all, "all", "a", false, "Run every routine query (overrides query arguments)")
	f.BoolVarP(&opts.debug, "debug", "d", false, "Only stop to view or save the responses of failing queries")
	f.BoolVarP(&opts.view, "view", "v", false, "View every response body")
	f.BoolVarP(&opts.noView, "no-view", "V", false, "Never view response bodies")
	f.StringVarP(&opts.save, "save", "s", "", "Save every response body to this file or directory")
	f.BoolVarP(&opts.noSave, "no-save", "S", false, "Never save response bodies (overrides --save)")
	f.BoolVarP(&opts.pipe, "pipe", "p", false, "Write the response body to stdout (single query only)")
	f.BoolVar(&opts.verbose, "verbose", false, "Show every assertion, not just failures")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Only print failing queries and the final tally")
	f.StringVar(&opts.report, "report", "", "Write a JSON report of the run into this directory")
	f.BoolVar(&opts.watch, "watch", false, "Re-run the queries whenever query files change")

	_ = cmd.RegisterFlagCompletionFunc("env", completeEnvironments)

	cmd.MarkFlagsMutuallyExclusive("view", "no-view")
	cmd.MarkFlagsMutuallyExclusive("pipe", "view")
	cmd.MarkFlagsMutuallyExclusive("pipe", "watch")
	cmd.MarkFlagsMutuallyExclusive("quiet", "verbose")

	return cmd
}

// dispositionFlags converts the view and save switches.
func (o *testOptions) dispositionFlags() disposition.Flags {
	flags := disposition.Flags{
		SavePath: o.save,
		NoSave:   o.noSave,
		Pipe:     o.pipe,
	}
	switch {
	case o.view:
		v := true
		flags.View = &v
	case o.noView:
		v := false
		flags.View = &v
	}
	return flags
}

func runTest(ctx context.Context, opts *testOptions, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	registry := environment.New(cfg.Environments)

	var sel selector
	var prompter *prompt.Readline
	if prompt.Interactive() {
		prompter = prompt.New()
		sel = prompter
	}

	entry, askedEnv, err := selectEnvironment(opts.env, registry, sel)
	if err != nil {
		return err
	}

	seedQueries(cfg.QueriesDir)
	vars := templateVars(entry)
	loader := testing.NewQueryLoader(cfg.QueriesDir, vars, nil)
	selections, askedQueries, err := selectQueries(opts, args, loader, sel)
	if err != nil {
		return err
	}

	queries, err := loader.Load(selections...)
	if err != nil {
		return &config.ConfigurationError{
			Field:     "queries",
			ErrorType: "parse",
			Message:   err.Error(),
		}
	}

	modes, err := disposition.Resolve(opts.dispositionFlags(), len(queries))
	if err != nil {
		return err
	}

	if askedEnv || askedQueries {
		hint := rerunHint(opts, entry.Key, modes, selections)
		fmt.Fprintln(os.Stderr, text.Colors{text.Italic, text.FgHiBlack}.Sprint("[Hint] Re-run this command more quickly using: "+hint))
	}

	controllerOpts := []disposition.Option{
		disposition.WithViewer(disposition.NewPagerViewer(cfg.Viewer.JSON, cfg.Viewer.Text)),
	}
	if prompter != nil {
		controllerOpts = append(controllerOpts, disposition.WithPrompter(prompter))
	}

	fwOpts := testing.FrameworkOptions{
		Mode:         testing.ExecutionModeCLI,
		Verbose:      opts.verbose,
		Debug:        opts.debug,
		ReportPath:   opts.report,
		Quiet:        opts.quiet,
		QueriesDir:   cfg.QueriesDir,
		TemplateVars: vars,
		HTTPClient:   httpClientFor(ctx, cfg, entry.App),
		PollInterval: cfg.Poll.Interval,
		PollTimeout:  cfg.Poll.Timeout,
		UserAgent:    "tt/" + GetVersion(),
		Disposer:     disposition.NewController(modes, controllerOpts...),
	}

	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			logging.Warn("History", "Run history disabled: %v", err)
		} else {
			defer store.Close()
			fwOpts.Recorder = store
		}
	}

	framework := testing.NewTestFramework(fwOpts)
	testCfg := testing.TestConfiguration{
		Environment: entry.Key,
		BaseURL:     entry.URL,
		Debug:       opts.debug,
		Verbose:     opts.verbose,
		ReportPath:  opts.report,
		Selection:   selections,
	}

	if opts.watch {
		return watchQueries(ctx, framework, testCfg, cfg.QueriesDir, queries)
	}

	result, err := framework.Runner.Run(ctx, testCfg, queries)
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}
	if !result.Succeeded() {
		return ErrQueriesFailed
	}
	return nil
}

// seedQueries installs the bundled query suite on first use.
func seedQueries(dir string) {
	seeded, err := querysuite.Seed(dir)
	if err != nil {
		logging.Warn("Queries", "Bundled queries not installed: %v", err)
		return
	}
	if seeded {
		logging.Info("Queries", "Installed bundled queries into %s", dir)
	}
}

// selectEnvironment resolves key, asking for one when it is empty. The
// second result reports whether the user was asked.
func selectEnvironment(key string, registry *environment.Registry, sel selector) (environment.Entry, bool, error) {
	asked := false
	if key == "" {
		if sel == nil {
			return environment.Entry{}, false, &config.ConfigurationError{
				Field:       "env",
				ErrorType:   "usage",
				Message:     "no environment given",
				Suggestions: []string{"pass -e with one of: " + strings.Join(registry.QualifiedKeys(), ", ")},
			}
		}
		choice, err := sel.Select("Select environment...", registry.QualifiedKeys())
		if err != nil {
			return environment.Entry{}, false, err
		}
		key = choice
		asked = true
	}

	entry, err := registry.Lookup(key)
	if err != nil {
		return environment.Entry{}, asked, err
	}
	return entry, asked, nil
}

// selectQueries returns the query selections to load: --all, the
// arguments, or the user's choice from every known query.
func selectQueries(opts *testOptions, args []string, loader testing.QueryLoader, sel selector) ([]string, bool, error) {
	if opts.all {
		return []string{allRoutineQueries}, false, nil
	}
	if len(args) > 0 {
		return args, false, nil
	}
	if sel == nil {
		return nil, false, &config.ConfigurationError{
			Field:       "queries",
			ErrorType:   "usage",
			Message:     "no queries given",
			Suggestions: []string{"name one or more queries, e.g. tt test -e bte.ci routine/sync/general", "use --all to run every routine query"},
		}
	}

	names, err := loader.ListQueries()
	if err != nil {
		return nil, false, err
	}
	if len(names) == 0 {
		return nil, false, fmt.Errorf("no query files in %s", loader.Root())
	}
	choices, err := sel.MultiSelect("Select query file(s)... (numbers or names, comma separated, or 'all')", names)
	if err != nil {
		return nil, false, err
	}
	return choices, true, nil
}

// rerunHint renders the command line that repeats this run without prompts.
func rerunHint(opts *testOptions, env string, modes disposition.Modes, selections []string) string {
	parts := []string{"tt test", "-e " + env}
	if opts.all {
		parts = append(parts, "-a")
	}
	if opts.debug {
		parts = append(parts, "-d")
	}
	parts = append(parts, modes.Args()...)
	if !opts.all {
		parts = append(parts, selections...)
	}
	return strings.Join(parts, " ")
}

func templateVars(entry environment.Entry) map[string]any {
	return map[string]any{
		"Environment": entry.Key,
		"App":         entry.App,
		"Level":       entry.Level,
		"BaseURL":     entry.URL,
	}
}

// watchQueries runs the batch once and again after every change to the
// query files, reloading the selection each time.
func watchQueries(ctx context.Context, framework *testing.TestFramework, testCfg testing.TestConfiguration, root string, initial []testing.QueryDefinition) error {
	run := func(ctx context.Context, queries []testing.QueryDefinition) {
		if _, err := framework.Runner.Run(ctx, testCfg, queries); err != nil && ctx.Err() == nil {
			logging.Error("Watch", err, "Run failed")
		}
	}

	run(ctx, initial)
	fmt.Fprintf(os.Stderr, "\n👀 Watching %s for changes (Ctrl+C to stop)\n", root)

	watcher := testing.NewQueryWatcher(root, testing.DefaultDebounceInterval)
	err := watcher.Watch(ctx, func(ctx context.Context) {
		queries, err := framework.Loader.Load(testCfg.Selection...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", text.FgRed.Sprint("✗"), err)
			return
		}
		run(ctx, queries)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	return nil
}

// completeEnvironments offers environment keys for -e.
func completeEnvironments(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, key := range environment.New(cfg.Environments).Keys() {
		if strings.HasPrefix(key, toComplete) {
			out = append(out, key)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
