// Package logging provides the subsystem-tagged logger used across tt.
//
// It is a thin layer over log/slog. Every entry carries a subsystem attribute
// so that output from the protocol client, the prober and the runner can be
// told apart when --log-level=debug is set.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Runner", "Running %d queries against %s", n, env)
//	logging.Debug("TRAPI", "Polling job %s (attempt %d)", jobID, attempt)
//	logging.Error("Prober", err, "Probe of %s failed", url)
//
// Logs are always written to stderr by the CLI so that `tt test --pipe`
// output on stdout stays machine readable.
package logging
