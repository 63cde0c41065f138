package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// invoiceTypeCode prefixes generated invoice numbers (INV-2025-00001).
const invoiceTypeCode = "INV"

// invoiceTransitions is the complete transition table of the invoice state machine.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:    {InvoiceStatusApproved},
	InvoiceStatusApproved: {InvoiceStatusPosted, InvoiceStatusDraft},
}

// CanTransitionTo reports whether the state machine allows moving from s to target.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// TransitionPolicy decides whether an actor may perform an allowed transition.
type TransitionPolicy interface {
	CanTransition(actor Actor, from, to InvoiceStatus) bool
}

// TransitionPolicyFunc adapts a function to TransitionPolicy.
type TransitionPolicyFunc func(actor Actor, from, to InvoiceStatus) bool

func (f TransitionPolicyFunc) CanTransition(actor Actor, from, to InvoiceStatus) bool {
	return f(actor, from, to)
}

// AllowAll permits every transition the table allows.
var AllowAll TransitionPolicy = TransitionPolicyFunc(func(Actor, InvoiceStatus, InvoiceStatus) bool { return true })

// RolePolicy permits a transition when the actor holds one of the roles listed for
// the target status. A target without an entry is refused.
func RolePolicy(rolesByTarget map[InvoiceStatus][]string) TransitionPolicy {
	return TransitionPolicyFunc(func(actor Actor, _, to InvoiceStatus) bool {
		roles, ok := rolesByTarget[to]
		if !ok {
			return false
		}
		return actor.HasAnyRole(roles...)
	})
}

// InvoiceService manages tax invoices and drives their state machine:
// DRAFT → APPROVED → POSTED, plus APPROVED → DRAFT (reopen).
type InvoiceService interface {
	CreateInvoice(ctx context.Context, tc TenantContext, in InvoiceInput) (*TaxInvoice, error)
	// UpdateInvoice replaces the editable fields. Only DRAFT invoices can be edited.
	UpdateInvoice(ctx context.Context, tc TenantContext, id int64, in InvoiceInput) (*TaxInvoice, error)
	GetInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error)
	ListInvoices(ctx context.Context, tc TenantContext, f InvoiceFilter) ([]TaxInvoice, error)

	ApproveInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error)
	ReopenInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error)
	// PostInvoice posts the sales-invoice journal entry and records its id on the
	// invoice, atomically. A failed posting leaves the invoice APPROVED.
	PostInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error)
}

type invoiceService struct {
	store   Store
	posting PostingService
	policy  TransitionPolicy
	logger  *zap.Logger
	now     func() time.Time
}

// NewInvoiceService constructs an InvoiceService. A nil policy allows every
// transition in the table.
func NewInvoiceService(store Store, posting PostingService, policy TransitionPolicy, logger *zap.Logger) InvoiceService {
	if policy == nil {
		policy = AllowAll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &invoiceService{store: store, posting: posting, policy: policy, logger: logger, now: time.Now}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, tc TenantContext, in InvoiceInput) (*TaxInvoice, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	if err := s.normalize(&in); err != nil {
		return nil, err
	}

	inv := &TaxInvoice{
		TenantID:  tc.TenantID,
		Status:    InvoiceStatusDraft,
		CreatedBy: tc.Actor.ID,
		CreatedAt: s.now().UTC(),
	}
	applyInvoiceInput(inv, in)

	err := s.store.WithTx(ctx, func(tx Store) error {
		if inv.InvoiceNumber == "" {
			year := inv.IssueDate.Year()
			seq, err := tx.NextSequence(ctx, tc.TenantID, invoiceTypeCode, year)
			if err != nil {
				return fmt.Errorf("failed to generate invoice number: %w", err)
			}
			inv.InvoiceNumber = formatNumber(invoiceTypeCode, year, seq)
		}
		return tx.InsertInvoice(ctx, tc.TenantID, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, tc TenantContext, id int64, in InvoiceInput) (*TaxInvoice, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	if err := s.normalize(&in); err != nil {
		return nil, err
	}

	var inv *TaxInvoice
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		if inv, err = tx.GetInvoice(ctx, tc.TenantID, id); err != nil {
			return err
		}
		if inv.Status != InvoiceStatusDraft {
			return fmt.Errorf("invoice %s is %s: %w", inv.InvoiceNumber, inv.Status, ErrInvoiceLocked)
		}
		number := inv.InvoiceNumber
		applyInvoiceInput(inv, in)
		if inv.InvoiceNumber == "" {
			inv.InvoiceNumber = number
		}
		return tx.UpdateInvoice(ctx, tc.TenantID, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.GetInvoice(ctx, tc.TenantID, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, tc TenantContext, f InvoiceFilter) ([]TaxInvoice, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.ListInvoices(ctx, tc.TenantID, f)
}

func (s *invoiceService) ApproveInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error) {
	return s.transition(ctx, tc, id, InvoiceStatusApproved, func(tx Store, inv *TaxInvoice) error {
		now := s.now().UTC()
		inv.ApprovedBy = tc.Actor.ID
		inv.ApprovedAt = &now
		return nil
	})
}

func (s *invoiceService) ReopenInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error) {
	return s.transition(ctx, tc, id, InvoiceStatusDraft, func(tx Store, inv *TaxInvoice) error {
		inv.ApprovedBy = ""
		inv.ApprovedAt = nil
		return nil
	})
}

func (s *invoiceService) PostInvoice(ctx context.Context, tc TenantContext, id int64) (*TaxInvoice, error) {
	return s.transition(ctx, tc, id, InvoiceStatusPosted, func(tx Store, inv *TaxInvoice) error {
		entry, err := s.posting.PostSalesInvoiceTx(ctx, tx, tc, inv)
		if err != nil {
			return fmt.Errorf("failed to post invoice %s: %w", inv.InvoiceNumber, err)
		}
		now := s.now().UTC()
		inv.PostingRef = &entry.ID
		inv.PostedAt = &now
		return nil
	})
}

// transition locks the invoice, checks the table then the policy, applies the
// side effect and persists the new status, all in one transaction.
func (s *invoiceService) transition(ctx context.Context, tc TenantContext, id int64, to InvoiceStatus, apply func(tx Store, inv *TaxInvoice) error) (*TaxInvoice, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	var inv *TaxInvoice
	var from InvoiceStatus
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		if inv, err = tx.GetInvoice(ctx, tc.TenantID, id); err != nil {
			return err
		}
		from = inv.Status
		if !from.CanTransitionTo(to) {
			return &InvalidTransitionError{From: from, To: to}
		}
		if !s.policy.CanTransition(tc.Actor, from, to) {
			return &TransitionNotPermittedError{ActorID: tc.Actor.ID, From: from, To: to}
		}
		if err := apply(tx, inv); err != nil {
			return err
		}
		inv.Status = to
		return tx.UpdateInvoice(ctx, tc.TenantID, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice status changed",
		zap.String("tenant", tc.TenantID),
		zap.Int64("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", tc.Actor.ID),
	)
	return inv, nil
}

func (s *invoiceService) normalize(in *InvoiceInput) error {
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	if in.Type == "" {
		in.Type = InvoiceTypeStandard
	}
	if in.Type != InvoiceTypeStandard && in.Type != InvoiceTypeSimplified {
		return fmt.Errorf("%w: unknown invoice type %q", ErrInvalidInput, in.Type)
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = s.now()
	}
	in.IssueDate = truncateDay(in.IssueDate)
	if strings.TrimSpace(in.Seller.Name) == "" {
		return fmt.Errorf("%w: seller name is required", ErrInvalidInput)
	}
	// Simplified (B2C) invoices may omit the buyer.
	if in.Type == InvoiceTypeStandard && strings.TrimSpace(in.Buyer.Name) == "" {
		return fmt.Errorf("%w: buyer name is required on a standard invoice", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: invoice must have at least one item", ErrInvalidInput)
	}
	for i, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrInvalidInput, i+1)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d: unit price cannot be negative", ErrInvalidInput, i+1)
		}
		if it.VATRate != nil && it.VATRate.IsNegative() {
			return fmt.Errorf("%w: item %d: vat rate cannot be negative", ErrInvalidInput, i+1)
		}
	}
	return nil
}

func applyInvoiceInput(inv *TaxInvoice, in InvoiceInput) {
	inv.InvoiceNumber = in.InvoiceNumber
	inv.Type = in.Type
	inv.IssueDate = in.IssueDate
	inv.Seller = in.Seller
	inv.Buyer = in.Buyer
	inv.Items = make([]InvoiceLineItem, 0, len(in.Items))
	for _, it := range in.Items {
		inv.Items = append(inv.Items, NewInvoiceLineItem(it))
	}
	inv.Recalculate()
}
