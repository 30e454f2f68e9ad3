package docsystem

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/storage"
)

// enterprisesDir is the top-level directory holding every enterprise tree.
const enterprisesDir = "enterprises"

// pathResolver derives storage paths from the current tree state.
//
// A node's own segment is the basename of its persisted storage path when it
// has one (that keeps collision suffixes stable), otherwise the slug of its
// name. Descendants' persisted paths are never trusted as full paths: they go
// stale when an ancestor is renamed or moved.
type pathResolver struct {
	enterprises docsysRepo.EnterpriseRepository
	services    docsysRepo.ServiceRepository
	folders     docsysRepo.FolderRepository
	mirror      storage.Mirror
	maxHops     int
}

// NewPathResolver creates a new path resolver
func NewPathResolver(
	enterprises docsysRepo.EnterpriseRepository,
	services docsysRepo.ServiceRepository,
	folders docsysRepo.FolderRepository,
	mirror storage.Mirror,
	maxHops int,
) docsysSvc.PathResolver {
	if maxHops <= 0 {
		maxHops = DefaultMaxAncestorHops
	}
	return &pathResolver{
		enterprises: enterprises,
		services:    services,
		folders:     folders,
		mirror:      mirror,
		maxHops:     maxHops,
	}
}

// EnterpriseBasePath returns the persisted base path, else enterprises/<slug>
// suffixed with the enterprise id when another enterprise or a stray
// directory already occupies it.
func (r *pathResolver) EnterpriseBasePath(ctx context.Context, enterpriseID int64) (string, error) {
	enterprise, err := r.enterprises.GetByID(ctx, enterpriseID)
	if err != nil {
		return "", err
	}
	if enterprise.StoragePath != nil && *enterprise.StoragePath != "" {
		return *enterprise.StoragePath, nil
	}

	taken := func(ctx context.Context, p string) (bool, error) {
		claimed, err := r.enterprises.PathTaken(ctx, p, enterpriseID)
		if err != nil || claimed {
			return claimed, err
		}
		return r.mirror.Exists(ctx, p)
	}
	return ResolveCollision(ctx, enterprisesDir, Slugify(enterprise.Name), enterpriseID, taken)
}

// ServiceBasePath returns the directory that holds a service's root contents
func (r *pathResolver) ServiceBasePath(ctx context.Context, serviceID int64) (string, error) {
	service, err := r.services.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}
	return r.serviceBasePath(ctx, service)
}

func (r *pathResolver) serviceBasePath(ctx context.Context, service *models.Service) (string, error) {
	base, err := r.EnterpriseBasePath(ctx, service.EnterpriseID)
	if err != nil {
		return "", err
	}
	if service.StoragePath != nil && *service.StoragePath != "" {
		return storage.Join(base, path.Base(*service.StoragePath)), nil
	}
	return ResolveCollision(ctx, base, Slugify(service.Name), service.ID, r.mirror.Exists)
}

// FolderRelativePath returns serviceSlug/sub/slugs. The root's own name is
// not a segment: the service directory stands in for it.
func (r *pathResolver) FolderRelativePath(ctx context.Context, folder *models.Folder) (string, error) {
	service, err := r.services.GetByID(ctx, folder.ServiceID)
	if err != nil {
		return "", err
	}
	base, err := r.serviceBasePath(ctx, service)
	if err != nil {
		return "", err
	}

	segments, err := r.segments(ctx, folder)
	if err != nil {
		return "", err
	}
	return storage.Join(append([]string{path.Base(base)}, segments...)...), nil
}

// FolderDirPath returns the effective directory of a folder
func (r *pathResolver) FolderDirPath(ctx context.Context, folder *models.Folder) (string, error) {
	service, err := r.services.GetByID(ctx, folder.ServiceID)
	if err != nil {
		return "", err
	}
	base, err := r.serviceBasePath(ctx, service)
	if err != nil {
		return "", err
	}

	segments, err := r.segments(ctx, folder)
	if err != nil {
		return "", err
	}
	return storage.Join(append([]string{base}, segments...)...), nil
}

// DocumentDirPath returns the folder directory, or the service directory for unfiled documents
func (r *pathResolver) DocumentDirPath(ctx context.Context, doc *models.Document) (string, error) {
	if doc.FolderID == nil {
		return r.ServiceBasePath(ctx, doc.ServiceID)
	}
	folder, err := r.folders.GetByID(ctx, *doc.FolderID)
	if err != nil {
		return "", err
	}
	return r.FolderDirPath(ctx, folder)
}

// DocumentFilePath returns the directory joined with the document's stored filename
func (r *pathResolver) DocumentFilePath(ctx context.Context, doc *models.Document) (string, error) {
	dir, err := r.DocumentDirPath(ctx, doc)
	if err != nil {
		return "", err
	}
	return storage.Join(dir, documentFilename(doc)), nil
}

// DisplayPath returns names joined root to leaf, e.g. "Legal/Contracts"
func (r *pathResolver) DisplayPath(ctx context.Context, folder *models.Folder) (string, error) {
	var names []string
	err := walkAncestors(ctx, r.folders, folder, r.maxHops, func(f *models.Folder) bool {
		names = append(names, f.Name)
		return false
	})
	if err != nil {
		return "", fmt.Errorf("display path of folder %d: %w", folder.ID, err)
	}
	slices.Reverse(names)
	return strings.Join(names, "/"), nil
}

// segments returns the non-root segments from the service root down to folder
func (r *pathResolver) segments(ctx context.Context, folder *models.Folder) ([]string, error) {
	var segments []string
	err := walkAncestors(ctx, r.folders, folder, r.maxHops, func(f *models.Folder) bool {
		if f.IsRoot() {
			return true
		}
		segments = append(segments, folderSegment(f))
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("path of folder %d: %w", folder.ID, err)
	}
	slices.Reverse(segments)
	return segments, nil
}

// folderSegment is the last path element a folder occupies
func folderSegment(f *models.Folder) string {
	if f.StoragePath != nil && *f.StoragePath != "" {
		return path.Base(*f.StoragePath)
	}
	return Slugify(f.Name)
}

// documentFilename is the stored filename of a document
func documentFilename(doc *models.Document) string {
	if doc.StoragePath != "" {
		return path.Base(doc.StoragePath)
	}
	return SlugifyFilename(doc.Name)
}
