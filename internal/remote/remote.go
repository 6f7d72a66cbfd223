// Package remote talks to the frame-set object store over HTTP. The store
// exposes a folder tree with named files; fieldframe publishes each frame set
// into {root}/{label}/{label}_{timestamp}.
package remote

import "context"

// Folder is a directory node in the remote store.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

// File is an uploaded object in the remote store.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FolderID string `json:"folder_id"`
	Size     int64  `json:"size"`
}

// ObjectStore is the surface the upload stage needs from the remote store.
// EnsureFolder has find-or-create semantics: calling it twice with the same
// parent and name returns the same folder.
type ObjectStore interface {
	EnsureFolder(ctx context.Context, parentID, name string) (Folder, error)
	FindFile(ctx context.Context, folderID, name string) (*File, error)
	UploadFile(ctx context.Context, folderID, localPath string) (File, error)
}
