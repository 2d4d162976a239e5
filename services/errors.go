package services

import (
	"errors"
	"fmt"
)

// A main meal of this label already exists for the day.
type DuplicateMealError struct {
	Label string
}

func (e *DuplicateMealError) Error() string {
	return fmt.Sprintf("You already have a %s for this day.", e.Label)
}

var (
	ErrMealNotFound        = errors.New("meal not found")
	ErrMealAlreadyComplete = errors.New("meal is already complete")

	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrResetTokenInvalid  = errors.New("invalid or expired token")
)
