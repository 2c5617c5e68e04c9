// Package core provides the business logic for importing task exports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI, transport or storage backend. It can be used by the
// web server, the CLI, or tests without modification.
//
// # Pipeline
//
// An import run flows leaf-first through five pieces:
//
//  1. [Tokenize] drops the export preamble and yields rows, keeping quoted
//     fields together across line breaks
//  2. [MapColumns] reads the header row once against [ExportSchema]
//  3. [RecordBuilder] converts each data row into an [ImportRecord]
//  4. [DateParser] normalizes the export's date strings
//  5. [Reconciler] applies records to a [Store] and counts [RunStatistics]
//
// # Idempotency
//
// Folders and projects are looked up by exact name before they are created,
// so re-running an import never duplicates them. Tasks carry no key and are
// created for every valid row; a re-run duplicates tasks.
//
// # Error Handling
//
// Row-level problems (short rows, missing titles, store failures on one
// record) skip the row and are listed in [RunResult.Failures]. Only input
// acquisition failures and cancellation abort a run. [MapError] maps
// technical errors to user-facing messages with support codes.
//
// # Service
//
// [Service] wraps the pipeline for long-lived callers: it normalizes input
// bytes, serializes runs through an [ImportLimiter], and remembers recent
// [RunResult]s.
package core
