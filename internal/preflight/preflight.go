// Package preflight verifies the runtime environment before capture or
// publishing work starts.
package preflight

import (
	"context"

	"fieldframe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Capture directory", cfg.Paths.CaptureDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Export.Mode == config.ExportModeLocal {
		results = append(results, CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir))
	}

	results = append(results, CheckBinary("FFmpeg", cfg.FFmpegBinary(), "required for capture and frame extraction"))
	results = append(results, CheckBinary("FFprobe", cfg.FFprobeBinary(), "required for media inspection"))

	if cfg.Export.Mode == config.ExportModeRemote {
		results = append(results, CheckRemote(ctx, cfg))
	}

	return results
}

// AllPassed reports whether every check in results passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
