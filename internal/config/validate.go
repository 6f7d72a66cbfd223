package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
// All problems are reported together so a bad config can be fixed in one pass.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.CaptureDir) == "" {
		problems = append(problems, "paths.capture_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		problems = append(problems, "paths.staging_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Capture.VideoExtension == "" {
		problems = append(problems, "capture.video_extension must not be empty")
	}
	if len(c.Capture.Phases) == 0 {
		problems = append(problems, "capture.phases must define at least one phase")
	}
	for i, phase := range c.Capture.Phases {
		if phase.DurationSeconds < 1 {
			problems = append(problems, fmt.Sprintf("capture.phases[%d].duration_seconds must be at least 1", i))
		}
		if phase.Label == "" {
			problems = append(problems, fmt.Sprintf("capture.phases[%d].label must not be empty", i))
		}
	}

	switch c.Export.Mode {
	case ExportModeRemote, ExportModeLocal:
	default:
		problems = append(problems, fmt.Sprintf("export.mode must be %q or %q, got %q", ExportModeRemote, ExportModeLocal, c.Export.Mode))
	}
	if c.Export.Mode == ExportModeLocal && strings.TrimSpace(c.Paths.ExportDir) == "" {
		problems = append(problems, "paths.export_dir must be set when export.mode is \"local\"")
	}
	if c.Export.Mode == ExportModeRemote && strings.TrimSpace(c.Remote.BaseURL) == "" {
		problems = append(problems, "remote.base_url must be set when export.mode is \"remote\"")
	}
	if c.Remote.RequestTimeout < 1 {
		problems = append(problems, "remote.request_timeout must be at least 1 second")
	}
	if strings.TrimSpace(c.Remote.RootFolder) == "" {
		problems = append(problems, "remote.root_folder must not be empty")
	}

	if c.Workflow.QueuePollInterval < 1 {
		problems = append(problems, "workflow.queue_poll_interval must be at least 1 second")
	}
	if c.Workflow.ErrorRetryInterval < 1 {
		problems = append(problems, "workflow.error_retry_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatInterval < 1 {
		problems = append(problems, "workflow.heartbeat_interval must be at least 1 second")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
