package calculator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExpense is returned when an expense fails input-integrity checks.
	ErrInvalidExpense = errors.New("invalid expense")

	// ErrUnbalanceableExpense is returned when rounding reconciliation would drive a share negative.
	ErrUnbalanceableExpense = errors.New("unbalanceable expense")

	// ErrInvariantViolation is returned when balances fail to sum to zero.
	// It should be unreachable for inputs that pass validation.
	ErrInvariantViolation = errors.New("settlement invariant violated")

	// ErrInvalidSplit is returned when a split method cannot be resolved into shares.
	ErrInvalidSplit = errors.New("invalid split")
)

// ValidationError identifies the expense and field that failed validation.
type ValidationError struct {
	ExpenseID string
	Field     string // "payers", "shares", "members", or "payers[i].amount_paid" style paths
	UserID    string
	Reason    string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid expense %q: %s: %s", e.ExpenseID, e.Field, e.Reason)
	if e.UserID != "" {
		msg += fmt.Sprintf(" (user %q)", e.UserID)
	}
	return msg
}

// Unwrap returns ErrInvalidExpense so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidExpense
}

// UnbalanceableError reports an expense whose payer and share totals are too far apart
// to be reconciled onto its largest share.
type UnbalanceableError struct {
	ExpenseID  string
	PaidCents  int64
	OwedCents  int64
	ShareUser  string
	ShareCents int64 // largest share after applying the correction
}

func (e *UnbalanceableError) Error() string {
	return fmt.Sprintf("expense %q cannot be balanced: paid %s, owed %s, share of %q would become %s",
		e.ExpenseID, FormatCents(e.PaidCents), FormatCents(e.OwedCents), e.ShareUser, FormatCents(e.ShareCents))
}

// Unwrap returns ErrUnbalanceableExpense.
func (e *UnbalanceableError) Unwrap() error {
	return ErrUnbalanceableExpense
}

// InvariantError reports that money was not conserved. Valid input never triggers it.
type InvariantError struct {
	Check   string
	Details string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("settlement invariant violated: %s: %s", e.Check, e.Details)
}

// Unwrap returns ErrInvariantViolation.
func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}
