// Package testing runs batches of TRAPI queries and checks their responses.
//
// A batch is a list of query files loaded from the queries directory. Each
// query is sent to the selected environment, its assertions are evaluated,
// the outcome is reported, and the response body is handed to the
// disposition controller. Queries run strictly one after another.
//
// # Architecture Overview
//
//	                ┌─────────────────┐
//	                │    tt test      │ (CLI Command)
//	                │  (cmd/test.go)  │
//	                └─────────┬───────┘
//	                          │
//	                ┌─────────▼───────┐
//	                │   TestRunner    │
//	                │ (test_runner.go)│
//	                └─────────┬───────┘
//	                          │
//	     ┌──────────────┬─────┴────────┬──────────────┐
//	     │              │              │              │
//	┌────▼──────┐ ┌─────▼──────┐ ┌─────▼─────┐ ┌──────▼─────┐
//	│QueryExec. │ │ Assertions │ │ Reporter  │ │  Disposer  │
//	│ (trapi)   │ │ (assertion)│ │           │ │(disposition)│
//	└───────────┘ └────────────┘ └───────────┘ └────────────┘
//
// # Query Files
//
// Query files are YAML. They are rendered with text/template and the sprig
// function library before parsing, so values such as dates or environment
// variables can be filled in:
//
//	description: Gene regulates gene
//	method: POST
//	endpoint: /query
//	body:
//	  log_level: DEBUG
//	  message:
//	    query_graph: { ... }
//	tests:
//	  - status: 200
//	  - node_count
//	  - edge_count
//	  - result_count
//	  - log_contains: "(?i)sub-querying"
//
// The method defaults to POST. The query name is the file path relative to
// the queries directory without its extension, e.g. "routine/sync/general".
// An unknown assertion makes the whole file fail to load.
//
// # Results
//
// A query PASSED when every assertion passed and FAILED otherwise. A query
// whose async job never finished also FAILED, and its assertions are not
// evaluated. A query that could not be sent or whose server broke protocol
// is an ERROR. Errors do not stop the batch; cancelling the context does.
//
// # Execution Modes
//
// In CLI mode progress goes to stderr with a spinner while polling. In MCP
// server mode nothing is written and the result is collected by a
// StructuredReporter.
//
// # Watch Mode
//
// QueryWatcher re-runs a batch after query files change. Changes are
// debounced, and a change that arrives during a run causes exactly one
// further run.
package testing
