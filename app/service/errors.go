package service

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrProcessingConflict means a creation race was detected but the winning
	// record could not be read back. This should not happen with a store that
	// enforces uniqueness atomically.
	ErrProcessingConflict = errors.New("payment processing conflict")

	// ErrPaymentProcessing wraps any unexpected failure between gateway
	// submission and notification dispatch. The record is marked FAILED before
	// this is returned; the queue listener is expected to redeliver.
	ErrPaymentProcessing = errors.New("payment processing failed")
)
