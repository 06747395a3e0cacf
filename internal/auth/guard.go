package auth

import (
	"errors"

	"github.com/hongminglow/coinfolio-be/internal/models"
)

// ErrNotAuthorized means the target's ownership chain does not end at the caller.
var ErrNotAuthorized = errors.New("not authorized")

// Authorize checks that target transitively belongs to accountID.
// There is no delegated access and no superuser override.
func Authorize(accountID int64, target models.Ownable) error {
	if accountID <= 0 || target == nil || target.OwningAccount() != accountID {
		return ErrNotAuthorized
	}
	return nil
}
