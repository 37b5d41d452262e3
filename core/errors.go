package core

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrDerivation means the stored seed of a user cannot be used anymore and
	// needs operator intervention.
	ErrDerivation = errors.New("derivation failed")
	ErrConflict   = errors.New("conflict")
	// ErrLedger wraps transient rpc failures; callers retry later.
	ErrLedger  = errors.New("ledger unavailable")
	ErrExpired = errors.New("payment expired")
)
