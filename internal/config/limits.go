package config

const (
	// MaxDocumentNameLength is the maximum length for document names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentNameLength = 255

	// MaxFolderNameLength is the maximum length for folder names.
	// Same as document names for consistency.
	MaxFolderNameLength = 255

	// MaxStoragePathLength is the maximum length of a persisted storage path.
	// Deep hierarchies past this are rejected at creation time.
	MaxStoragePathLength = 1024

	// MaxUploadBytes caps a single document upload.
	MaxUploadBytes = 50 << 20

	// MaxShareServices caps the service list of a single share.
	MaxShareServices = 500
)
