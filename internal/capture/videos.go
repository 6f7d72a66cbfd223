package capture

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// VideoFile describes one recording in the capture directory.
type VideoFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// ListVideos returns recordings under dir with the given extension, newest
// first by modification time. A missing directory yields an empty list.
func ListVideos(dir, extension string) ([]VideoFile, error) {
	extension = strings.ToLower(strings.TrimSpace(extension))
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	videos := make([]VideoFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if extension != "" && strings.ToLower(filepath.Ext(name)) != extension {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		videos = append(videos, VideoFile{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].ModTime.After(videos[j].ModTime)
	})
	return videos, nil
}
