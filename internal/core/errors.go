package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnbalancedEntry        = errors.New("unbalanced journal entry")
	ErrMissingAccount         = errors.New("required account missing from chart of accounts")
	ErrInvalidTransition      = errors.New("invalid invoice status transition")
	ErrNotFound               = errors.New("not found")
	ErrInvalidEntry           = errors.New("invalid journal entry")
	ErrDuplicatePosting       = errors.New("source document already posted")
	ErrTransitionNotPermitted = errors.New("transition not permitted for actor")
	ErrSystemAccount          = errors.New("system accounts cannot be deleted")
	ErrAccountInUse           = errors.New("account is referenced by journal lines")
	ErrDuplicateAccount       = errors.New("account code already exists")
	ErrInvoiceLocked          = errors.New("invoice can only be edited in DRAFT status")
	ErrTenantRequired         = errors.New("tenant id is required")
	ErrInvalidInput           = errors.New("invalid input")
	ErrSourceDocumentEntry    = errors.New("journal entry belongs to a source document")
)

// SourceDocumentEntryError is returned when a generic journal operation targets an
// entry that a source document still points at.
type SourceDocumentEntryError struct {
	EntryID   int64
	SourceKey string
}

func (e *SourceDocumentEntryError) Error() string {
	return fmt.Sprintf("journal entry %d is owned by %s and cannot be voided directly", e.EntryID, e.SourceKey)
}

func (e *SourceDocumentEntryError) Unwrap() error { return ErrSourceDocumentEntry }

// UnbalancedEntryError is returned when debits and credits differ beyond BalanceTolerance.
type UnbalancedEntryError struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debits %s != credits %s",
		e.DebitTotal.StringFixed(2), e.CreditTotal.StringFixed(2))
}

func (e *UnbalancedEntryError) Unwrap() error { return ErrUnbalancedEntry }

// MissingAccountError means the chart of accounts lacks an account a posting needs.
type MissingAccountError struct {
	Code string
}

func (e *MissingAccountError) Error() string {
	return fmt.Sprintf("account code %s not found in chart of accounts", e.Code)
}

func (e *MissingAccountError) Unwrap() error { return ErrMissingAccount }

type InvalidTransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invoice cannot move from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError names the kind of record and the key that was looked up.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

type InvalidLineError struct {
	Index  int
	Reason string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Index+1, e.Reason)
}

func (e *InvalidLineError) Unwrap() error { return ErrInvalidEntry }

// DuplicateEntryError is returned when an entry with the same source key exists.
type DuplicateEntryError struct {
	SourceKey  string
	ExistingID int64
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("source %s already posted as entry %d", e.SourceKey, e.ExistingID)
}

func (e *DuplicateEntryError) Unwrap() error { return ErrDuplicatePosting }

type TransitionNotPermittedError struct {
	ActorID string
	From    InvoiceStatus
	To      InvoiceStatus
}

func (e *TransitionNotPermittedError) Error() string {
	return fmt.Sprintf("actor %q may not move invoice from %s to %s", e.ActorID, e.From, e.To)
}

func (e *TransitionNotPermittedError) Unwrap() error { return ErrTransitionNotPermitted }

// IsClientError returns true if the error is caused by the request rather than the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnbalancedEntry) ||
		errors.Is(err, ErrMissingAccount) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidEntry) ||
		errors.Is(err, ErrDuplicatePosting) ||
		errors.Is(err, ErrTransitionNotPermitted) ||
		errors.Is(err, ErrSystemAccount) ||
		errors.Is(err, ErrAccountInUse) ||
		errors.Is(err, ErrDuplicateAccount) ||
		errors.Is(err, ErrInvoiceLocked) ||
		errors.Is(err, ErrTenantRequired) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrSourceDocumentEntry)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
