package docsystem

import (
	"context"
	"errors"
	"log/slog"

	"portal/internal/domain"
	"portal/internal/domain/repositories"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/metrics"
	"portal/internal/signal"
	"portal/internal/storage"
)

// ServiceConfig holds what the tree services share
type ServiceConfig struct {
	Enterprises docsysRepo.EnterpriseRepository
	Services    docsysRepo.ServiceRepository
	Folders     docsysRepo.FolderRepository
	Documents   docsysRepo.DocumentRepository
	Shares      docsysRepo.ShareRepository
	TxManager   repositories.TransactionManager

	Mirror     storage.Mirror
	Paths      docsysSvc.PathResolver
	Visibility docsysSvc.VisibilityResolver
	Signal     signal.Signal
	Metrics    metrics.PortalMetrics
	Logger     *slog.Logger

	MaxAncestorHops int
}

// mutator carries the mirror and notification plumbing of the mutating services.
//
// Ordering rules: Create writes to storage inside the transaction and aborts
// on failure. Rename and Move attempt the physical move first and commit the
// metadata whatever happens. Delete removes physical data item by item and
// always removes the rows.
type mutator struct {
	cfg    *ServiceConfig
	logger *slog.Logger
}

func newMutator(cfg *ServiceConfig) mutator {
	if cfg.Signal == nil {
		cfg.Signal = signal.Noop{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopPortalMetrics()
	}
	if cfg.MaxAncestorHops <= 0 {
		cfg.MaxAncestorHops = DefaultMaxAncestorHops
	}
	return mutator{cfg: cfg, logger: cfg.Logger}
}

// notify bumps the enterprise change counter. It never fails the caller.
func (m *mutator) notify(ctx context.Context, enterpriseID int64) {
	m.cfg.Signal.Increment(context.WithoutCancel(ctx), signal.EnterpriseKey(enterpriseID))
}

// exists checks the mirror, reporting lookup failures as storage unavailability
func (m *mutator) exists(ctx context.Context, p string) (bool, error) {
	ok, err := m.cfg.Mirror.Exists(ctx, p)
	if err != nil {
		return false, &domain.StorageUnavailableError{Op: "exists", Path: p, Err: err}
	}
	return ok, nil
}

// makeDirStrict creates a directory or fails the operation
func (m *mutator) makeDirStrict(ctx context.Context, p string) error {
	if err := m.cfg.Mirror.MakeDir(ctx, p); err != nil {
		m.cfg.Metrics.ObserveStorageFailure("mkdir")
		return &domain.StorageUnavailableError{Op: "mkdir", Path: p, Err: err}
	}
	return nil
}

// targetPath picks the destination of a rename or move. Keeping the current
// path wins over suffixing; a failed lookup falls back to the plain slug.
func (m *mutator) targetPath(ctx context.Context, op, parentDir, slug string, id int64, current string) string {
	candidate := storage.Join(parentDir, slug)
	if candidate == current {
		return current
	}
	target, err := ResolveCollision(ctx, parentDir, slug, id, m.cfg.Mirror.Exists)
	if err != nil {
		m.storageFailed(op, "exists", candidate, err)
		return candidate
	}
	if target == current {
		return current
	}
	return target
}

// relocate moves oldPath to newPath, creating the destination parent first.
// Failures are logged and counted but never returned.
func (m *mutator) relocate(ctx context.Context, op, parentDir, oldPath, newPath string) {
	if oldPath == newPath {
		return
	}
	if err := m.cfg.Mirror.MakeDir(ctx, parentDir); err != nil {
		m.storageFailed(op, "mkdir", parentDir, err)
	}

	err := m.cfg.Mirror.Move(ctx, oldPath, newPath)
	switch {
	case err == nil:
		m.logger.Debug("storage moved", "op", op, "from", oldPath, "to", newPath)
	case errors.Is(err, storage.ErrNotExist):
		m.logger.Debug("nothing to move in storage", "op", op, "from", oldPath)
	default:
		m.storageFailed(op, "move", oldPath, err, "to", newPath)
	}
}

// removeFile deletes a single file, treating a missing file as done
func (m *mutator) removeFile(ctx context.Context, op, p string) {
	err := m.cfg.Mirror.DeleteFile(ctx, p)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		m.storageFailed(op, "delete file", p, err)
	}
}

// removeDir deletes a directory tree
func (m *mutator) removeDir(ctx context.Context, op, p string) {
	if err := m.cfg.Mirror.DeleteRecursive(ctx, p); err != nil {
		m.storageFailed(op, "delete dir", p, err)
	}
}

func (m *mutator) storageFailed(op, action, p string, err error, extra ...any) {
	m.cfg.Metrics.ObserveStorageFailure(op)
	attrs := append([]any{"op", op, "action", action, "path", p, "error", err}, extra...)
	m.logger.Warn("storage operation failed, metadata still committed", attrs...)
}

// enterpriseOf returns the enterprise owning a service
func (m *mutator) enterpriseOf(ctx context.Context, serviceID int64) (int64, error) {
	service, err := m.cfg.Services.GetByID(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	return service.EnterpriseID, nil
}

// mutationOp names an update for logs and metrics: rename_<kind>,
// move_<kind>, or update_<kind> when both happen at once.
func mutationOp(kind string, rename, move bool) string {
	switch {
	case rename && move:
		return "update_" + kind
	case move:
		return "move_" + kind
	default:
		return "rename_" + kind
	}
}
