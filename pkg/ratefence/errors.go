package ratefence

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNonPositiveRequests is returned when the policy's request budget is zero or negative
	ErrNonPositiveRequests = errors.New("policy requests must be positive")

	// ErrNonPositivePeriod is returned when the policy's window period is zero or negative
	ErrNonPositivePeriod = errors.New("policy period must be positive")

	// ErrUnidentifiedClient is returned when no client identity can be derived from a request
	ErrUnidentifiedClient = errors.New("cannot identify client")
)
