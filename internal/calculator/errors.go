package calculator

import "errors"

var (
	ErrInsufficientData = errors.New("not enough data")
	ErrNonPositivePrice = errors.New("non-positive or undefined price")
	ErrZeroVariance     = errors.New("return series has zero variance")
	ErrInvalidLag       = errors.New("lag must be positive")
	ErrLagTooLarge      = errors.New("lag not smaller than series length")
)
