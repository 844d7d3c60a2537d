package order

import "errors"

var (
	ErrBulkOrderNotFound = errors.New("bulk order not found")
	ErrEntryNotFound     = errors.New("order entry not found")
	ErrInvalidSubmission = errors.New("invalid submission")
)
