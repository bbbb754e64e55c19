// Package common defines shared sentinel errors used across the bot's
// services and the platform boundary adapter. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Platform boundary errors. The adapter translates remote-call
	// failures into these kinds; nothing above it inspects raw
	// platform errors.
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")

	// Ledger errors.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Anything that is not one of the kinds above.
	ErrInternal = errors.New("internal error")
)
