// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound   = errors.New("not found")
	ErrWriteError = errors.New("write failed")

	// Ledger policy errors.
	ErrQuotaExhausted   = errors.New("weekly quota exhausted")
	ErrInsolvent        = errors.New("insufficient funds in current account")
	ErrMissingAccount   = errors.New("missing account")
	ErrDuplicateAccount = errors.New("duplicate account type")
	ErrAccountNotEmpty  = errors.New("account still holds movements")
	ErrNotRefundable    = errors.New("movement cannot be refunded")
	ErrCharacterInUse   = errors.New("character already assigned")
	ErrNoCharacter      = errors.New("participant has no character")
	ErrUnauthorized     = errors.New("not authorized")

	// Ledger integrity errors.
	ErrPartiallyApplied = errors.New("paired movement partially applied")

	// Validation errors.
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidInput  = errors.New("invalid input")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Kind classifies a ledger failure.
type Kind int

const (
	// KindValidation is a caller-correctable input problem.
	KindValidation Kind = iota + 1
	// KindPolicy is a business rule refusal.
	KindPolicy
	// KindIntegrity means the ledger was left partially written.
	KindIntegrity
	// KindStore is a record store failure.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindIntegrity:
		return "integrity"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// LedgerError carries enough context to correct a failed operation by hand.
type LedgerError struct {
	Err       error
	Op        string
	AccountID string
	ProductID string
	Leg       string
	Detail    string
	Kind      Kind
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	if e.AccountID != "" {
		fmt.Fprintf(&b, " account=%s", e.AccountID)
	}
	if e.ProductID != "" {
		fmt.Fprintf(&b, " product=%s", e.ProductID)
	}
	if e.Leg != "" {
		fmt.Fprintf(&b, " leg=%s", e.Leg)
	}
	return b.String()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Validation builds a KindValidation error.
func Validation(op string, err error, detail string) *LedgerError {
	return &LedgerError{Kind: KindValidation, Op: op, Err: err, Detail: detail}
}

// Policy builds a KindPolicy error.
func Policy(op string, err error, detail string) *LedgerError {
	return &LedgerError{Kind: KindPolicy, Op: op, Err: err, Detail: detail}
}

// Store builds a KindStore error.
func Store(op string, err error) *LedgerError {
	return &LedgerError{Kind: KindStore, Op: op, Err: err}
}

// KindOf returns the kind of a ledger error, or zero for other errors.
func KindOf(err error) Kind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
