package models

import "errors"

var (
	// Input-shape errors. Raised before any model is fit.
	ErrEmptyInput    = errors.New("empty input")
	ErrMissingColumn = errors.New("missing required column")
	ErrInvalidInput  = errors.New("invalid input")

	// Numerical-fit errors.
	ErrInsufficientData   = errors.New("insufficient data to fit model")
	ErrNotConverged       = errors.New("optimizer did not converge")
	ErrInvalidParameters  = errors.New("fitted parameters outside model domain")
	ErrSingularCovariance = errors.New("covariance matrix is not positive definite")

	// Per-customer precondition.
	ErrNoRepeatTransactions = errors.New("customer has no repeat transactions")
)
