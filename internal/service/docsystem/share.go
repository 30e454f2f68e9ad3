package docsystem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
)

type shareService struct {
	mutator
	folders docsysSvc.FolderService
}

// NewShareService creates a new share service. Unsharing deletes the shared
// subtree through folders.
func NewShareService(cfg *ServiceConfig, folders docsysSvc.FolderService) docsysSvc.ShareService {
	return &shareService{
		mutator: newMutator(cfg),
		folders: folders,
	}
}

// ShareFolder shares a folder subtree with the enterprise or a list of services
func (s *shareService) ShareFolder(ctx context.Context, req *docsysSvc.ShareFolderRequest) (share *models.SharedFolder, err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("share_folder", err) }()

	if err := validateShare(req.Visibility, req.ServiceIDs); err != nil {
		return nil, err
	}

	folder, err := s.cfg.Folders.GetByID(ctx, req.FolderID)
	if err != nil {
		return nil, err
	}
	enterpriseID, err := s.enterpriseOf(ctx, folder.ServiceID)
	if err != nil {
		return nil, err
	}
	serviceIDs, err := s.targetServices(ctx, enterpriseID, req.Visibility, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	share = &models.SharedFolder{
		EnterpriseID: enterpriseID,
		FolderID:     folder.ID,
		Name:         folder.Name,
		Visibility:   req.Visibility,
		ServiceIDs:   serviceIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.cfg.Shares.Create(ctx, share)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Visibility.Invalidate()
	s.logger.Info("folder shared",
		"id", share.ID,
		"folder_id", share.FolderID,
		"visibility", share.Visibility,
		"service_ids", share.ServiceIDs,
	)
	s.notify(ctx, enterpriseID)
	return share, nil
}

// GetShare retrieves a share by id
func (s *shareService) GetShare(ctx context.Context, id int64) (*models.SharedFolder, error) {
	return s.cfg.Shares.GetByID(ctx, id)
}

// UpdateShare replaces visibility and target services
func (s *shareService) UpdateShare(ctx context.Context, id int64, req *docsysSvc.UpdateShareRequest) (share *models.SharedFolder, err error) {
	defer func() { s.cfg.Metrics.ObserveMutation("update_share", err) }()

	if err := validateShare(req.Visibility, req.ServiceIDs); err != nil {
		return nil, err
	}

	share, err = s.cfg.Shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	serviceIDs, err := s.targetServices(ctx, share.EnterpriseID, req.Visibility, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	share.Visibility = req.Visibility
	share.ServiceIDs = serviceIDs
	share.UpdatedAt = time.Now()
	err = s.cfg.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.cfg.Shares.Update(ctx, share)
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Visibility.Invalidate()
	s.logger.Info("share updated",
		"id", share.ID,
		"visibility", share.Visibility,
		"service_ids", share.ServiceIDs,
	)
	s.notify(ctx, share.EnterpriseID)
	return share, nil
}

// UnshareFolder removes a share by deleting the shared folder and everything
// beneath it; the share row goes with the folder.
func (s *shareService) UnshareFolder(ctx context.Context, id int64) error {
	share, err := s.cfg.Shares.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.logger.Info("unsharing folder, deleting subtree",
		"share_id", share.ID,
		"folder_id", share.FolderID,
	)
	return s.folders.DeleteFolder(ctx, share.FolderID)
}

// ListShares lists shares of the principal's enterprise that the principal may traverse
func (s *shareService) ListShares(ctx context.Context, principal *models.Principal) ([]models.SharedFolder, error) {
	shares, err := s.cfg.Visibility.VisibleShares(ctx, principal)
	if err != nil {
		return nil, err
	}
	if shares == nil {
		shares = []models.SharedFolder{}
	}
	return shares, nil
}

// ResolveVisible summarizes the visible shares with their owning service and display path
func (s *shareService) ResolveVisible(ctx context.Context, principal *models.Principal) ([]models.SharedFolderSummary, error) {
	shares, err := s.cfg.Visibility.VisibleShares(ctx, principal)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.SharedFolderSummary, 0, len(shares))
	for _, share := range shares {
		folder, err := s.cfg.Folders.GetByID(ctx, share.FolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		displayPath, err := s.cfg.Paths.DisplayPath(ctx, folder)
		if err != nil {
			s.logger.Warn("failed to compute path", "folder_id", folder.ID, "error", err)
			displayPath = folder.Name
		}
		summaries = append(summaries, models.SharedFolderSummary{
			ID:         share.ID,
			FolderID:   share.FolderID,
			Name:       share.Name,
			Visibility: share.Visibility,
			ServiceID:  folder.ServiceID,
			Path:       displayPath,
		})
	}
	return summaries, nil
}

// targetServices dedupes the service list and checks every service belongs to
// the enterprise. Enterprise-wide shares carry no list.
func (s *shareService) targetServices(ctx context.Context, enterpriseID int64, visibility models.Visibility, ids []int64) ([]int64, error) {
	if visibility == models.VisibilityEnterprise {
		return nil, nil
	}

	ids = dedupeIDs(ids)
	for _, id := range ids {
		service, err := s.cfg.Services.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: service %d does not exist", domain.ErrValidation, id)
			}
			return nil, err
		}
		if service.EnterpriseID != enterpriseID {
			return nil, fmt.Errorf("%w: service %d belongs to another enterprise", domain.ErrValidation, id)
		}
	}
	return ids, nil
}
