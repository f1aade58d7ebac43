// This file defines the data structures exchanged by the file manager API.

package models

import "time"

// Folder is the persisted record of a folder created through the API.
// A folder is locked while it has a password hash.
type Folder struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"` // relative to the upload root
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Locked reports whether the folder is password protected.
func (f *Folder) Locked() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

// FileEntry is one item of a directory listing or search result.
type FileEntry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"` // relative to the upload root, slash separated
	IsDir   bool      `json:"is_dir"`
	IsFile  bool      `json:"is_file"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Locked  bool      `json:"locked,omitempty"`
}
