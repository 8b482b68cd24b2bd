package domain

import "errors"

// Business errors, mapped to HTTP statuses by the transport.
var (
	ErrBadParams          = errors.New("bad_params")          // 400
	ErrEmptyBatch         = errors.New("empty_batch")         // 400
	ErrNotFound           = errors.New("not_found")           // 404
	ErrMethodNotAllowed   = errors.New("method_not_allowed")  // 405
	ErrBusy               = errors.New("session_busy")        // 409
	ErrExpired            = errors.New("expired")             // 410
	ErrCapacityExceeded   = errors.New("capacity_exceeded")   // 413
	ErrDecode             = errors.New("decode_error")        // 422
	ErrPersistence        = errors.New("persistence_error")   // 500
	ErrUnexpected         = errors.New("unexpected")          // 500
	ErrStorageUnavailable = errors.New("storage_unavailable") // 503
)

// Envelope error codes
const (
	ErrCodeBadParams          = 1000
	ErrCodeEmptyBatch         = 1001
	ErrCodeNotFound           = 1004
	ErrCodeMethodNotAllowed   = 1005
	ErrCodeBusy               = 1009
	ErrCodeExpired            = 1010
	ErrCodeCapacityExceeded   = 1013
	ErrCodeDecode             = 1022
	ErrCodePersistence        = 1500
	ErrCodeUnexpected         = 1501
	ErrCodeStorageUnavailable = 1503
)
