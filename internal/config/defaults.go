package config

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			CaptureDir: "~/.local/share/fieldframe/capture",
			StagingDir: "~/.local/share/fieldframe/staging",
			ExportDir:  "~/fieldframe-export",
			LogDir:     "~/.local/share/fieldframe/logs",
		},
		Capture: Capture{
			Device:         "/dev/video0",
			VideoExtension: ".mp4",
			Phases:         DefaultPhases(),
		},
		Extraction: Extraction{
			FPS:         1,
			JPEGQuality: 90,
		},
		Remote: Remote{
			BaseURL:        "",
			Token:          "",
			Account:        "",
			RootFolder:     "FieldFrame",
			RequestTimeout: 60,
		},
		Export: Export{
			Mode: ExportModeRemote,
		},
		Upload: Upload{
			MaxAttempts: 3,
		},
		Notifications: Notifications{
			NtfyTopic:      "",
			RequestTimeout: 10,
			Capture:        true,
			Publish:        true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 30,
			HeartbeatInterval:  10,
			HeartbeatTimeout:   120,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

// DefaultPhases returns the built-in guided capture sequence. Sessions walk
// these steps in order, one second at a time, pulsing at each boundary.
func DefaultPhases() []Phase {
	return []Phase{
		{Instruction: "Hold the object at chest height, front facing the camera", Label: "front", Icon: "front", DurationSeconds: 5},
		{Instruction: "Slowly rotate the object a quarter turn to the left", Label: "left", Icon: "rotate-left", DurationSeconds: 5},
		{Instruction: "Show the back of the object", Label: "back", Icon: "back", DurationSeconds: 5},
		{Instruction: "Rotate to the remaining side", Label: "right", Icon: "rotate-right", DurationSeconds: 5},
		{Instruction: "Tilt the object to show the top", Label: "top", Icon: "tilt-up", DurationSeconds: 5},
		{Instruction: "Tilt the object to show the bottom", Label: "bottom", Icon: "tilt-down", DurationSeconds: 5},
	}
}

// TotalCaptureSeconds returns the combined duration of all configured phases.
func (c *Capture) TotalCaptureSeconds() int {
	total := 0
	for _, phase := range c.Phases {
		total += phase.DurationSeconds
	}
	return total
}
