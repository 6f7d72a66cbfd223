package config

import "strings"

const (
	minExtractionFPS = 1
	maxExtractionFPS = 30
)

// normalize expands paths and coerces loosely specified values into their
// canonical form before validation runs.
func (c *Config) normalize() error {
	var err error
	if c.Paths.CaptureDir, err = expandPath(c.Paths.CaptureDir); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return err
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Capture.Device = strings.TrimSpace(c.Capture.Device)
	c.Capture.VideoExtension = strings.ToLower(strings.TrimSpace(c.Capture.VideoExtension))
	if c.Capture.VideoExtension != "" && !strings.HasPrefix(c.Capture.VideoExtension, ".") {
		c.Capture.VideoExtension = "." + c.Capture.VideoExtension
	}
	for i := range c.Capture.Phases {
		c.Capture.Phases[i].Label = strings.TrimSpace(c.Capture.Phases[i].Label)
		c.Capture.Phases[i].Instruction = strings.TrimSpace(c.Capture.Phases[i].Instruction)
	}

	// Sampling rate is clamped rather than rejected so a hand-edited config
	// cannot park every recording in the failed state.
	if c.Extraction.FPS < minExtractionFPS {
		c.Extraction.FPS = minExtractionFPS
	}
	if c.Extraction.FPS > maxExtractionFPS {
		c.Extraction.FPS = maxExtractionFPS
	}
	if c.Extraction.JPEGQuality < 1 {
		c.Extraction.JPEGQuality = 1
	}
	if c.Extraction.JPEGQuality > 100 {
		c.Extraction.JPEGQuality = 100
	}

	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.Token = strings.TrimSpace(c.Remote.Token)
	c.Remote.Account = strings.TrimSpace(c.Remote.Account)
	c.Remote.RootFolder = strings.TrimSpace(c.Remote.RootFolder)

	c.Export.Mode = strings.ToLower(strings.TrimSpace(c.Export.Mode))
	if c.Export.Mode == "" {
		c.Export.Mode = ExportModeRemote
	}

	if c.Upload.MaxAttempts < 1 {
		c.Upload.MaxAttempts = 1
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	return nil
}
