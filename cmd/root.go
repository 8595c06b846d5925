package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/biothings/trapi-testing-tools/internal/config"
	"github.com/biothings/trapi-testing-tools/internal/environment"
	"github.com/biothings/trapi-testing-tools/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error or at least one query that did not pass.
	ExitCodeError = 1
	// ExitCodeUsage indicates a configuration problem or an invalid selection,
	// such as an unknown environment. Nothing was sent over the network.
	ExitCodeUsage = 2
)

// ErrQueriesFailed is returned by tt test when a query failed or errored.
// The reporter has already summarized the run, so it is not printed again.
var ErrQueriesFailed = errors.New("one or more queries did not pass")

var (
	configPath string
	logLevel   string
)

// rootCmd represents the base command for the tt application.
var rootCmd = &cobra.Command{
	Use:   "tt",
	Short: "Run and check TRAPI queries against knowledge graph APIs",
	Long: `tt sends TRAPI queries to BioThings Explorer and other Translator
knowledge graph APIs, follows asynchronous jobs to completion, checks each
response against the assertions in its query file, and lets you view or
save the response bodies.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLogLevel(logLevel)
		if err != nil {
			return &config.ConfigurationError{
				Field:     "log-level",
				ErrorType: "usage",
				Message:   err.Error(),
			}
		}
		logging.InitForCLI(level, os.Stderr)
		return config.LoadEnvFile(".env")
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application. SIGINT and
// SIGTERM cancel the command context, which stops a batch after the
// current query.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "tt version %s\n" .Version}}`)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(err)
		os.Exit(getExitCode(err))
	}
}

func printError(err error) {
	if errors.Is(err, ErrQueriesFailed) {
		return
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cfgErr.DetailedError())
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeUsage
	}

	var envErr *environment.UnknownEnvironmentError
	if errors.As(err, &envErr) {
		return ExitCodeUsage
	}

	var appErr *environment.UnknownAppError
	if errors.As(err, &appErr) {
		return ExitCodeUsage
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(),
		"Directory holding config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")

	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newPingCmd())
	rootCmd.AddCommand(newEnvsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
