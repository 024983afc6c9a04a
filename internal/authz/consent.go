package authz

import (
	"fmt"

	"github.com/taskforge/api/internal/domain"
)

// MinimumAge is the lowest age accepted at account creation or update.
const MinimumAge = 15

// ValidateAccount is the consent gate applied to candidate user records.
// It rejects under-age accounts; consent flags need no checking here since
// they default to false and only the user can flip them.
func ValidateAccount(age int) error {
	if age < 0 {
		return fmt.Errorf("%w: age must not be negative", domain.ErrValidation)
	}
	if age < MinimumAge {
		return fmt.Errorf("%w: user must be at least %d years old", domain.ErrValidation, MinimumAge)
	}
	return nil
}
