package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidQuery      = 1003
	ErrCodeInvalidGUID       = 1004
	ErrCodeInvalidStatus     = 1005
	ErrCodeInvalidType       = 1006
	ErrCodeInvalidPaging     = 1007
	ErrCodeInvalidPageSize   = 1008
	ErrCodeMissingRequired   = 1009
	ErrCodeInvalidTimeFilter = 1010
	ErrCodeInvalidZone       = 1011
	ErrCodeInvalidUserID     = 1012
	ErrCodeInvalidOrdering   = 1013

	// Domain state (2xxx)
	ErrCodeElementNotFound = 2001
	ErrCodeUserNotFound    = 2002
	ErrCodeConflict        = 2102

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal       = 4001
	ErrCodeStoreFailure   = 4002
	ErrCodeNotImplemented = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeElementNotFound
	case 409:
		return ErrCodeConflict
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	default:
		return 0
	}
}
