package postgres

import (
	"errors"
	"fmt"

	"github.com/dom/gifbox/internal/domain"
	"github.com/dom/gifbox/internal/repository"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the repository sentinels. Anything that is
// not a row-level outcome is treated as the store being unavailable.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return fmt.Errorf("%w: %v", domain.ErrPersistUnavailable, err)
	}
}
