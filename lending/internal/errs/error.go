package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrBookNotAvailable = fmt.Errorf("book is not available for checkout: %w", ErrConflict)
	ErrAlreadyReturned  = fmt.Errorf("book has already been returned: %w", ErrConflict)
	ErrLoanActive       = fmt.Errorf("cannot delete an active loan: %w", ErrConflict)
)
