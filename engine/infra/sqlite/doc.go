// Package sqlite provides the modernc.org/sqlite backed checkpoint store.
//
// Summaries of completed chunks are persisted per document so an interrupted
// run can resume without repeating completion calls.
package sqlite
