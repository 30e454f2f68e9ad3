// Package storage defines the physical mirror of the folder tree.
//
// Paths handed to a Mirror are slash-separated and relative to the mirror
// root, e.g. "enterprises/acme/legal/contracts/nda.pdf". Implementations never
// see absolute host paths.
package storage

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotExist indicates the path does not exist in the mirror.
	//
	// Returned by Move when the source is missing and by DeleteFile and
	// ReadStream for missing files. Callers treat it as "nothing to do"
	// for moves and deletes.
	ErrNotExist = errors.New("storage: path does not exist")

	// ErrUnavailable indicates the backend could not be reached or refused
	// the operation (permissions, disk full, network).
	ErrUnavailable = errors.New("storage: backend unavailable")

	// ErrInvalidPath indicates a path that escapes the mirror root or is empty.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Mirror is the physical directory/file tree kept in step with folder metadata.
type Mirror interface {
	// Exists reports whether a file or directory exists at path
	Exists(ctx context.Context, path string) (bool, error)

	// MakeDir creates path and any missing parents. Existing directories are fine.
	MakeDir(ctx context.Context, path string) error

	// Move renames oldPath to newPath. The parent of newPath must exist.
	// Returns ErrNotExist when oldPath is missing.
	Move(ctx context.Context, oldPath, newPath string) error

	// DeleteRecursive removes path and everything beneath it. Missing paths are not an error.
	DeleteRecursive(ctx context.Context, path string) error

	// WriteFile stores data at dirPath/filename atomically, creating dirPath if needed.
	WriteFile(ctx context.Context, dirPath, filename string, data []byte) error

	// DeleteFile removes a single file. Returns ErrNotExist when missing.
	DeleteFile(ctx context.Context, path string) error

	// ReadStream opens a file for reading. Caller closes the reader.
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)
}
