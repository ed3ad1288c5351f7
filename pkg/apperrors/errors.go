package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrNoRootMapping  = errors.New("no root schema mapping")
	ErrNoAccountScope = errors.New("no account scope in context")
	ErrAccountMissing = errors.New("account id is required")
)
