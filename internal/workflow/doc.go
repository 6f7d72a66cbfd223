// Package workflow coordinates the recording pipeline. A single poll loop
// pulls the oldest actionable queue item, runs the stage registered for its
// status, and persists the resulting transition. In-flight items emit
// heartbeats so work orphaned by a crash is reclaimed on the next pass.
package workflow
