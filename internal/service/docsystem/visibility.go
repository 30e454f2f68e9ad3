package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/metrics"
	"portal/internal/roles"
)

// DefaultOverlayTTL is how long a principal's share grants are cached.
const DefaultOverlayTTL = 5 * time.Second

// grantSet holds the ids of shared folders a principal may traverse
type grantSet map[int64]struct{}

// VisibilityConfig configures the visibility resolver
type VisibilityConfig struct {
	Services docsysRepo.ServiceRepository
	Folders  docsysRepo.FolderRepository
	Shares   docsysRepo.ShareRepository
	Roles    *roles.Registry
	Metrics  metrics.PortalMetrics
	Logger   *slog.Logger

	CacheTTL time.Duration
	MaxHops  int
}

// visibilityResolver answers "may this principal see this node".
//
// Enterprise-wide roles and principals flagged view-all see every service of
// their enterprise. Everyone else sees their own service plus any folder that
// has itself or an ancestor shared with them.
type visibilityResolver struct {
	services docsysRepo.ServiceRepository
	folders  docsysRepo.FolderRepository
	shares   docsysRepo.ShareRepository
	roles    *roles.Registry
	metrics  metrics.PortalMetrics
	logger   *slog.Logger

	cache      *ristretto.Cache[string, grantSet]
	generation atomic.Uint64 // bumped by Invalidate, part of every cache key
	ttl        time.Duration
	maxHops    int
}

// NewVisibilityResolver creates a visibility resolver with a short-lived overlay cache
func NewVisibilityResolver(cfg *VisibilityConfig) (docsysSvc.VisibilityResolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, grantSet]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create overlay cache: %w", err)
	}

	r := &visibilityResolver{
		services: cfg.Services,
		folders:  cfg.Folders,
		shares:   cfg.Shares,
		roles:    cfg.Roles,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		cache:    cache,
		ttl:      cfg.CacheTTL,
		maxHops:  cfg.MaxHops,
	}
	if r.metrics == nil {
		r.metrics = metrics.NewNoopPortalMetrics()
	}
	if r.ttl <= 0 {
		r.ttl = DefaultOverlayTTL
	}
	if r.maxHops <= 0 {
		r.maxHops = DefaultMaxAncestorHops
	}
	return r, nil
}

// CanSeeFolder reports whether folder is reachable for principal. A nil
// principal means an internal caller and sees everything.
func (r *visibilityResolver) CanSeeFolder(ctx context.Context, principal *models.Principal, folder *models.Folder) (bool, error) {
	if principal == nil {
		return true, nil
	}

	decided, visible, err := r.byOwnership(ctx, principal, folder.ServiceID)
	if err != nil || decided {
		return visible, err
	}

	grants, err := r.grants(ctx, principal)
	if err != nil {
		return false, err
	}
	if len(grants) == 0 {
		return false, nil
	}

	shared := false
	err = walkAncestors(ctx, r.folders, folder, r.maxHops, func(f *models.Folder) bool {
		_, shared = grants[f.ID]
		return shared
	})
	if err != nil {
		if errors.Is(err, errBrokenAncestry) {
			r.logger.Warn("folder ancestry is broken, hiding folder",
				"folder_id", folder.ID,
				"principal_id", principal.ID,
			)
			return false, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return shared, nil
}

// CanSeeDocument follows the document's folder. Unfiled documents sit in the
// service root context, so they follow the root.
func (r *visibilityResolver) CanSeeDocument(ctx context.Context, principal *models.Principal, doc *models.Document) (bool, error) {
	if principal == nil {
		return true, nil
	}

	if doc.FolderID != nil {
		folder, err := r.folders.GetByID(ctx, *doc.FolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return r.CanSeeFolder(ctx, principal, folder)
	}

	decided, visible, err := r.byOwnership(ctx, principal, doc.ServiceID)
	if err != nil || decided {
		return visible, err
	}

	root, err := r.folders.GetRoot(ctx, doc.ServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	grants, err := r.grants(ctx, principal)
	if err != nil {
		return false, err
	}
	_, shared := grants[root.ID]
	return shared, nil
}

// VisibleShares returns the shares principal may traverse: all of them for
// enterprise-wide principals, else those granted to the principal's service
// plus those on folders the service owns.
func (r *visibilityResolver) VisibleShares(ctx context.Context, principal *models.Principal) ([]models.SharedFolder, error) {
	if principal == nil {
		return nil, fmt.Errorf("%w: principal is required", domain.ErrValidation)
	}

	all, err := r.shares.ListByEnterprise(ctx, principal.EnterpriseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	if r.seesWholeEnterprise(principal) {
		return all, nil
	}

	visible := make([]models.SharedFolder, 0, len(all))
	for _, share := range all {
		if grantsPrincipal(&share, principal) {
			visible = append(visible, share)
			continue
		}
		if principal.ServiceID == nil {
			continue
		}
		folder, err := r.folders.GetByID(ctx, share.FolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if folder.ServiceID == *principal.ServiceID {
			visible = append(visible, share)
		}
	}
	return visible, nil
}

// Invalidate makes every cached grant set unreachable. Stale entries age out by TTL.
func (r *visibilityResolver) Invalidate() {
	r.generation.Add(1)
}

// byOwnership decides visibility from enterprise, role and service alone.
// decided is false when the share overlay has to be consulted.
func (r *visibilityResolver) byOwnership(ctx context.Context, principal *models.Principal, serviceID int64) (decided, visible bool, err error) {
	service, err := r.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return true, false, nil
		}
		return true, false, err
	}
	if service.EnterpriseID != principal.EnterpriseID {
		return true, false, nil
	}
	if r.seesWholeEnterprise(principal) || principal.InService(serviceID) {
		return true, true, nil
	}
	return false, false, nil
}

func (r *visibilityResolver) seesWholeEnterprise(principal *models.Principal) bool {
	return principal.ViewAllServices || r.roles.IsEnterpriseWide(principal.Role)
}

// grants returns the shared folder ids granted to principal, cached per
// principal and enterprise for a few seconds.
func (r *visibilityResolver) grants(ctx context.Context, principal *models.Principal) (grantSet, error) {
	key := overlayKey(r.generation.Load(), principal)
	if cached, ok := r.cache.Get(key); ok {
		r.metrics.ObserveVisibilityCache(true)
		return cached, nil
	}
	r.metrics.ObserveVisibilityCache(false)

	all, err := r.shares.ListByEnterprise(ctx, principal.EnterpriseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}

	grants := make(grantSet)
	for i := range all {
		if grantsPrincipal(&all[i], principal) {
			grants[all[i].FolderID] = struct{}{}
		}
	}

	r.cache.SetWithTTL(key, grants, 1, r.ttl)
	r.cache.Wait()
	return grants, nil
}

// grantsPrincipal reports whether a share's visibility reaches principal
func grantsPrincipal(share *models.SharedFolder, principal *models.Principal) bool {
	if share.EnterpriseID != principal.EnterpriseID {
		return false
	}
	if share.Visibility == models.VisibilityEnterprise {
		return true
	}
	return principal.ServiceID != nil && share.GrantsService(*principal.ServiceID)
}

// overlayKey keys the cache by principal and enterprise, plus every claim
// the grants depend on.
func overlayKey(generation uint64, principal *models.Principal) string {
	service := int64(0)
	if principal.ServiceID != nil {
		service = *principal.ServiceID
	}
	return fmt.Sprintf("%d:%d:%s:%d:%d:%t", generation, principal.ID, principal.Role,
		principal.EnterpriseID, service, principal.ViewAllServices)
}
