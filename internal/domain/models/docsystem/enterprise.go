package docsystem

import (
	"time"
)

// Enterprise is the tenant boundary. StoragePath is assigned lazily the first
// time a service root is materialized.
type Enterprise struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	StoragePath *string   `json:"storage_path,omitempty" db:"storage_path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Service is a department of an enterprise. It owns exactly one root folder.
type Service struct {
	ID           int64     `json:"id" db:"id"`
	EnterpriseID int64     `json:"enterprise_id" db:"enterprise_id"`
	Name         string    `json:"name" db:"name"`
	StoragePath  *string   `json:"storage_path,omitempty" db:"storage_path"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
