// Package rowstore reads and writes the spreadsheet-backed work queue.
//
// Store wraps a backend Connector with a cached connection handle (expiry
// timestamp plus force-refresh flag, guarded by a mutex), bounded retries with
// exponential backoff, and schema-checked single-cell writes. Rows are always
// reloaded in full; nothing about row content is cached between LoadAll calls.
//
// Backends live in subpackages: gsheets (Google Sheets v4) and xlsx (a local
// workbook). MemoryConnector backs tests and dry runs.
package rowstore
