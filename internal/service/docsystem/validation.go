package docsystem

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"portal/internal/config"
	"portal/internal/domain"
	models "portal/internal/domain/models/docsystem"
	docsysSvc "portal/internal/domain/services/docsystem"
	"portal/internal/storage"
)

var noSlashes = regexp.MustCompile(`^[^/\\]+$`)

// validateName checks a folder or document display name
func validateName(kind, name string, maxLen int) error {
	err := validation.Validate(strings.TrimSpace(name),
		validation.Required,
		validation.Length(1, maxLen),
		validation.Match(noSlashes).Error("cannot contain slashes"),
	)
	if err != nil {
		return fmt.Errorf("%w: %s name %v", domain.ErrValidation, kind, err)
	}
	return nil
}

// validateStoragePath rejects paths too long for the storage_path column
func validateStoragePath(p string) error {
	if len(p) > config.MaxStoragePathLength {
		return fmt.Errorf("%w: storage path exceeds %d characters", domain.ErrValidation, config.MaxStoragePathLength)
	}
	if _, err := storage.Clean(p); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

var errVisibility = errors.New("must be enterprise or services")

// validateShare checks visibility and the target service list
func validateShare(visibility models.Visibility, serviceIDs []int64) error {
	err := validation.Errors{
		"visibility": validation.Validate(visibility,
			validation.Required,
			validation.By(func(any) error {
				if !visibility.Valid() {
					return errVisibility
				}
				return nil
			}),
		),
		"service_ids": validation.Validate(serviceIDs,
			validation.When(visibility == models.VisibilityServices, validation.Required),
			validation.Length(0, config.MaxShareServices),
			validation.Each(validation.Min(int64(1))),
		),
	}.Filter()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateCreateFolder checks a folder creation request
func validateCreateFolder(req *docsysSvc.CreateFolderRequest) error {
	if req.ParentID == nil && req.ServiceID == nil {
		return fmt.Errorf("%w: parent_id or service_id is required", domain.ErrValidation)
	}
	return validateName("folder", req.Name, config.MaxFolderNameLength)
}

// validateCreateDocument checks a document upload request
func validateCreateDocument(req *docsysSvc.CreateDocumentRequest) error {
	if req.FolderID == nil && req.ServiceID == nil {
		return fmt.Errorf("%w: folder_id or service_id is required", domain.ErrValidation)
	}
	if len(req.Content) > config.MaxUploadBytes {
		return fmt.Errorf("%w: document exceeds %d bytes", domain.ErrValidation, config.MaxUploadBytes)
	}
	return validateName("document", req.Name, config.MaxDocumentNameLength)
}

// dedupeIDs returns ids without duplicates, order preserved
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
