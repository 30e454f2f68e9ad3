package docsystem

import (
	"time"
)

type Document struct {
	ID           int64     `json:"id" db:"id"`
	EnterpriseID int64     `json:"enterprise_id" db:"enterprise_id"`
	ServiceID    int64     `json:"service_id" db:"service_id"`
	FolderID     *int64    `json:"folder_id" db:"folder_id"` // NULL = stored in the service root directory
	Name         string    `json:"name" db:"name"`
	StoragePath  string    `json:"storage_path" db:"storage_path"`
	MimeType     string    `json:"mime_type" db:"mime_type"`
	Size         int64     `json:"size" db:"size"`
	CreatedBy    *int64    `json:"created_by,omitempty" db:"created_by"`
	Path         string    `json:"path,omitempty"` // Computed display path, not stored in DB
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
