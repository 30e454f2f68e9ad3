package docsystem

import (
	"time"
)

// Visibility controls who may traverse a shared folder.
type Visibility string

const (
	VisibilityEnterprise Visibility = "enterprise"
	VisibilityServices   Visibility = "services"
)

// Valid reports whether v is a known visibility value.
func (v Visibility) Valid() bool {
	return v == VisibilityEnterprise || v == VisibilityServices
}

// SharedFolder is an overlay record granting cross-service visibility to a
// folder and everything beneath it. At most one exists per folder.
type SharedFolder struct {
	ID           int64      `json:"id" db:"id"`
	EnterpriseID int64      `json:"enterprise_id" db:"enterprise_id"`
	FolderID     int64      `json:"folder_id" db:"folder_id"`
	Name         string     `json:"name" db:"name"`
	Visibility   Visibility `json:"visibility" db:"visibility"`
	ServiceIDs   []int64    `json:"service_ids"` // only meaningful for VisibilityServices
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// GrantsService reports whether a principal scoped to serviceID may see the share.
func (s *SharedFolder) GrantsService(serviceID int64) bool {
	if s.Visibility == VisibilityEnterprise {
		return true
	}
	for _, id := range s.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// SharedFolderSummary is the listing shape returned to principals.
type SharedFolderSummary struct {
	ID         int64      `json:"id"`
	FolderID   int64      `json:"folder_id"`
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	ServiceID  int64      `json:"service_id"` // owning service of the folder
	Path       string     `json:"path,omitempty"`
}
