// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// Unexpected represents an unexpected error in the application.
type Unexpected struct {
	base
}

// Error returns the error message for Unexpected.
func (u Unexpected) Error() string {
	return u.error()
}

// Unwrap returns the wrapped error, if any.
func (u Unexpected) Unwrap() error {
	return u.err
}

// NewUnexpected creates a new Unexpected error with the provided message.
func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// ServiceUnavailable represents a service unavailability error in the application.
type ServiceUnavailable struct {
	base
}

// Error returns the error message for ServiceUnavailable.
func (su ServiceUnavailable) Error() string {
	return su.error()
}

// Unwrap returns the wrapped error, if any.
func (su ServiceUnavailable) Unwrap() error {
	return su.err
}

// NewServiceUnavailable creates a new ServiceUnavailable error with the provided message.
func NewServiceUnavailable(message string, err ...error) ServiceUnavailable {
	return ServiceUnavailable{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// TransactionAborted represents a unit-of-work that failed to commit.
// Nothing written inside the unit-of-work is visible afterwards.
type TransactionAborted struct {
	base
}

// Error returns the error message for TransactionAborted.
func (ta TransactionAborted) Error() string {
	return ta.error()
}

// Unwrap returns the wrapped error, if any.
func (ta TransactionAborted) Unwrap() error {
	return ta.err
}

// NewTransactionAborted creates a new TransactionAborted error with the provided message.
func NewTransactionAborted(message string, err ...error) TransactionAborted {
	return TransactionAborted{
		base: base{
			message: message,
			err:     errors.Join(err...),
		},
	}
}

// IsRetryable reports whether err is worth retrying unchanged: a lost
// unique-constraint race, an aborted unit-of-work, or an unavailable backend.
func IsRetryable(err error) bool {
	var (
		conflict    Conflict
		aborted     TransactionAborted
		unavailable ServiceUnavailable
	)
	return errors.As(err, &conflict) ||
		errors.As(err, &aborted) ||
		errors.As(err, &unavailable)
}
