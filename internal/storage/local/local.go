// Package local implements storage.Mirror on top of an afero filesystem.
//
// Production uses an OS filesystem rooted at a base directory; tests and the
// "memory" backend use an in-memory filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"portal/internal/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Mirror stores the tree on an afero.Fs.
type Mirror struct {
	fs     afero.Fs
	logger *slog.Logger
}

var _ storage.Mirror = (*Mirror)(nil)

// New wraps an existing afero filesystem.
func New(fs afero.Fs, logger *slog.Logger) *Mirror {
	return &Mirror{fs: fs, logger: logger}
}

// NewOS returns a mirror rooted at root on the host filesystem, creating root if needed.
func NewOS(root string, logger *slog.Logger) (*Mirror, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage: root path is required")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, fmt.Errorf("local storage: create root %s: %w", root, err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), logger), nil
}

// NewMemory returns an ephemeral in-memory mirror.
func NewMemory(logger *slog.Logger) *Mirror {
	return New(afero.NewMemMapFs(), logger)
}

func (m *Mirror) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(m.fs, clean)
	if err != nil {
		return false, unavailable("stat", clean, err)
	}
	return ok, nil
}

func (m *Mirror) MakeDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	if err := m.fs.MkdirAll(clean, dirPerm); err != nil {
		return unavailable("mkdir", clean, err)
	}
	return nil
}

func (m *Mirror) Move(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, err := storage.Clean(oldPath)
	if err != nil {
		return err
	}
	to, err := storage.Clean(newPath)
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	ok, err := afero.Exists(m.fs, from)
	if err != nil {
		return unavailable("stat", from, err)
	}
	if !ok {
		return fmt.Errorf("move %s: %w", from, storage.ErrNotExist)
	}

	if err := m.fs.Rename(from, to); err != nil {
		return unavailable("rename", from+" -> "+to, err)
	}
	return nil
}

func (m *Mirror) DeleteRecursive(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	if err := m.fs.RemoveAll(clean); err != nil {
		return unavailable("remove", clean, err)
	}
	return nil
}

// WriteFile writes to a uniquely named temp file in the target directory and
// renames it into place so readers never observe a partial file.
func (m *Mirror) WriteFile(ctx context.Context, dirPath, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := storage.Clean(dirPath)
	if err != nil {
		return err
	}
	target, err := storage.Clean(path.Join(dir, filename))
	if err != nil {
		return err
	}
	if path.Dir(target) != dir {
		return fmt.Errorf("filename %q: %w", filename, storage.ErrInvalidPath)
	}

	if err := m.fs.MkdirAll(dir, dirPerm); err != nil {
		return unavailable("mkdir", dir, err)
	}

	tmp := path.Join(dir, "."+uuid.NewString()+".tmp")
	if err := afero.WriteFile(m.fs, tmp, data, filePerm); err != nil {
		_ = m.fs.Remove(tmp)
		return unavailable("write", tmp, err)
	}
	if err := m.fs.Rename(tmp, target); err != nil {
		_ = m.fs.Remove(tmp)
		return unavailable("rename", target, err)
	}

	m.logger.Debug("file written", "path", target, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

func (m *Mirror) DeleteFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return err
	}
	if err := m.fs.Remove(clean); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return fmt.Errorf("delete %s: %w", clean, storage.ErrNotExist)
		}
		return unavailable("delete", clean, err)
	}
	return nil
}

func (m *Mirror) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, err := storage.Clean(p)
	if err != nil {
		return nil, err
	}
	f, err := m.fs.Open(clean)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", clean, storage.ErrNotExist)
		}
		return nil, unavailable("open", clean, err)
	}
	return f, nil
}

func unavailable(op, p string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", storage.ErrUnavailable, op, p, err)
}
