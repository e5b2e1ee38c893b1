package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	// ErrAmountNegative applies to all monetary inputs. Amounts are magnitudes,
	// their direction is expressed by the field or movement type they belong to.
	ErrAmountNegative = errors.New("amounts must be zero or positive")
)
