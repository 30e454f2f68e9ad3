package memory

import (
	"errors"

	"portal/internal/domain"
)

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}
