// Package apperr holds the error taxonomy shared by the booking, availability and
// reconciliation layers. Handlers map these to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrSlotConflict = errors.New("slot not available")

// ValidationError names every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation error: " + strings.Join(names, ", ")
}

// GatewayError wraps a failed call to the payment provider. StatusCode is zero when the
// provider was unreachable.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "gateway " + e.Op + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status=%d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IntegrityError reports staged data that is missing or malformed during reconciliation.
type IntegrityError struct {
	PaymentID string
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error on payment %s: %s", e.PaymentID, e.Reason)
}

// StoreError wraps a document store failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func AsGateway(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
