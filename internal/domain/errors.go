package domain

import "errors"

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrOverClaim         = errors.New("claim amount exceeds remaining coverage")
	ErrInactiveCoverage  = errors.New("coverage is not active")
	ErrClaimInReview     = errors.New("claim adjudication already dispatched")
	ErrOracleConsensus   = errors.New("oracle consensus not reached")
	ErrTransferFailure   = errors.New("transfer failed")
	ErrIllegalTransition = errors.New("illegal status transition")
)
