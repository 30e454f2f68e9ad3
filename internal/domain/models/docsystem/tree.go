package docsystem

import "time"

// TreeNode represents the root of a service's document tree.
// Principals that only reach the service through shares get no Root; the
// shared subtrees they may see are listed in SharedFolders instead.
type TreeNode struct {
	ServiceID     int64              `json:"service_id"`
	Root          *FolderTreeNode    `json:"root,omitempty"`
	SharedFolders []*FolderTreeNode  `json:"shared_folders,omitempty"`
	Documents     []DocumentTreeNode `json:"documents"` // unfiled documents
}

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	ParentID  *int64             `json:"parent_id"`
	Shared    bool               `json:"shared"`
	CreatedAt time.Time          `json:"created_at"`
	Folders   []*FolderTreeNode  `json:"folders"` // Pointers for proper nesting
	Documents []DocumentTreeNode `json:"documents"`
}

// DocumentTreeNode represents a document in the tree (metadata only, no content)
type DocumentTreeNode struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FolderID  *int64    `json:"folder_id"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}
