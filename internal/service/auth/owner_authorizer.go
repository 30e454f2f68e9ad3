package auth

import (
	"context"
	"fmt"

	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysRepo "portal/internal/domain/repositories/docsystem"
	"portal/internal/roles"
)

// OwnershipAuthorizer implements ResourceAuthorizer using service ownership.
// A principal may modify a resource if it lives in the principal's own
// service, or if the principal's role reaches the whole enterprise.
//
// Reading is not decided here: the visibility resolver owns that, including
// folders shared across services.
type OwnershipAuthorizer struct {
	serviceRepo docsysRepo.ServiceRepository
	folderRepo  docsysRepo.FolderRepository
	docRepo     docsysRepo.DocumentRepository
	roles       *roles.Registry
}

// NewOwnershipAuthorizer creates a new ownership-based authorizer
func NewOwnershipAuthorizer(
	serviceRepo docsysRepo.ServiceRepository,
	folderRepo docsysRepo.FolderRepository,
	docRepo docsysRepo.DocumentRepository,
	roleRegistry *roles.Registry,
) *OwnershipAuthorizer {
	return &OwnershipAuthorizer{
		serviceRepo: serviceRepo,
		folderRepo:  folderRepo,
		docRepo:     docRepo,
		roles:       roleRegistry,
	}
}

// CanAccessService checks if the principal may write inside serviceID
func (a *OwnershipAuthorizer) CanAccessService(ctx context.Context, principal *models.Principal, serviceID int64) error {
	if principal == nil {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}

	service, err := a.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("get service for auth: %w", err)
	}
	if service.EnterpriseID != principal.EnterpriseID {
		return fmt.Errorf("access denied to service %d: %w", serviceID, domain.ErrForbidden)
	}

	policy := a.roles.Policy(principal.Role)
	if policy.ReadOnly {
		return fmt.Errorf("role %s is read-only: %w", principal.Role, domain.ErrForbidden)
	}
	if policy.Scope == roles.ScopeEnterprise || principal.InService(serviceID) {
		return nil
	}
	return fmt.Errorf("access denied to service %d: %w", serviceID, domain.ErrForbidden)
}

// CanModifyFolder checks if the principal may modify a folder (via its service)
func (a *OwnershipAuthorizer) CanModifyFolder(ctx context.Context, principal *models.Principal, folderID int64) error {
	folder, err := a.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return fmt.Errorf("get folder for auth: %w", err)
	}
	return a.CanAccessService(ctx, principal, folder.ServiceID)
}

// CanModifyDocument checks if the principal may modify a document (via its service)
func (a *OwnershipAuthorizer) CanModifyDocument(ctx context.Context, principal *models.Principal, documentID int64) error {
	doc, err := a.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document for auth: %w", err)
	}
	return a.CanAccessService(ctx, principal, doc.ServiceID)
}

// CanManageShares checks if the principal may share or unshare a folder.
// On top of write access to the folder's service the role must allow sharing.
func (a *OwnershipAuthorizer) CanManageShares(ctx context.Context, principal *models.Principal, folderID int64) error {
	if err := a.CanModifyFolder(ctx, principal, folderID); err != nil {
		return err
	}
	if !a.roles.Policy(principal.Role).ManageShares {
		return fmt.Errorf("role %s may not manage shares: %w", principal.Role, domain.ErrForbidden)
	}
	return nil
}
