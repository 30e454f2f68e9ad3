package docsystem

import (
	"time"
)

type Folder struct {
	ID          int64     `json:"id" db:"id"`
	ServiceID   int64     `json:"service_id" db:"service_id"`
	ParentID    *int64    `json:"parent_id" db:"parent_id"` // NULL = service root
	Name        string    `json:"name" db:"name"`
	StoragePath *string   `json:"storage_path,omitempty" db:"storage_path"`
	Path        string    `json:"path,omitempty"` // Computed display path, not stored in DB
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the folder is its service's root.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}
