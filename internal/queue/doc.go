// Package queue persists recording lifecycle state in SQLite. Every capture
// session becomes one queue item, keyed by its capture timestamp in epoch
// milliseconds, and moves through pending, extracting, extracted, publishing,
// completed, and failed.
package queue
