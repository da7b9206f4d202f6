package store

import "errors"

// Errors returned (wrapped) by store operations. Anything else is a store fault.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrUnknownElement   = errors.New("unknown element")
)
