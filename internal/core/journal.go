package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// journalTypeCode prefixes journal entry numbers (JE-2025-00001).
const journalTypeCode = "JE"

// JournalService validates and persists double-entry journal entries.
type JournalService interface {
	// CreateEntry validates the proposal and persists header and lines atomically.
	// The entry is POSTED unless in.Draft is set.
	CreateEntry(ctx context.Context, tc TenantContext, in EntryInput) (int64, error)

	// CreateEntryTx is CreateEntry inside a transaction owned by the caller, so the
	// entry and the caller's own writes commit or roll back together.
	CreateEntryTx(ctx context.Context, tx Store, tc TenantContext, in EntryInput) (*JournalEntry, error)

	// VoidEntry reverses a POSTED entry with a new entry of swapped lines and marks the
	// original VOIDED. The reversal is dated today, so voiding an entry from a closed
	// period moves the correction into the current period's P&L and trial balance.
	// Input VAT leaves out both the voided original and its reversal.
	// A DRAFT entry is marked VOIDED without a reversal and its own id is returned.
	// Missing or already voided entries return *NotFoundError. Entries posted for a
	// sales invoice return *SourceDocumentEntryError.
	VoidEntry(ctx context.Context, tc TenantContext, id int64, reason string) (int64, error)

	// PostEntry moves a DRAFT entry to POSTED.
	PostEntry(ctx context.Context, tc TenantContext, id int64) error

	// DeleteDraft removes a DRAFT entry and its lines. Posted entries are never deleted.
	DeleteDraft(ctx context.Context, tc TenantContext, id int64) error

	GetEntry(ctx context.Context, tc TenantContext, id int64) (*JournalEntry, error)
	ListEntries(ctx context.Context, tc TenantContext, f EntryFilter) ([]JournalEntry, error)
}

type journalService struct {
	store    Store
	resolver AccountResolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewJournalService constructs a JournalService over store. The resolver locates the
// rounding account; nil means the default account map. A nil logger disables logging.
func NewJournalService(store Store, resolver AccountResolver, logger *zap.Logger) JournalService {
	if resolver == nil {
		resolver = NewAccountResolver(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &journalService{store: store, resolver: resolver, logger: logger, now: time.Now}
}

func (s *journalService) CreateEntry(ctx context.Context, tc TenantContext, in EntryInput) (int64, error) {
	if err := tc.validate(); err != nil {
		return 0, err
	}

	var entry *JournalEntry
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		entry, err = s.CreateEntryTx(ctx, tx, tc, in)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("journal entry created",
		zap.String("tenant", tc.TenantID),
		zap.Int64("entry_id", entry.ID),
		zap.String("entry_number", entry.EntryNumber),
		zap.String("status", string(entry.Status)),
		zap.String("source_key", entry.SourceKey),
	)
	return entry.ID, nil
}

func (s *journalService) CreateEntryTx(ctx context.Context, tx Store, tc TenantContext, in EntryInput) (*JournalEntry, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	// 1. Structural validation
	in.Normalize(s.now())
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// 2. Every line must reference an account of this tenant
	for i, line := range in.Lines {
		if _, err := tx.GetAccount(ctx, tc.TenantID, line.AccountID); err != nil {
			if IsNotFound(err) {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			return nil, fmt.Errorf("failed to fetch account %d: %w", line.AccountID, err)
		}
	}

	if err := s.absorbRounding(ctx, tx, tc, &in); err != nil {
		return nil, err
	}

	status := EntryStatusPosted
	if in.Draft {
		status = EntryStatusDraft
	}
	return s.insert(ctx, tx, tc, in, status, nil)
}

// absorbRounding books a residual accepted by Validate to the rounding account.
func (s *journalService) absorbRounding(ctx context.Context, tx Store, tc TenantContext, in *EntryInput) error {
	debit, credit := in.Totals()
	residual := debit.Sub(credit)
	if residual.IsZero() {
		return nil
	}
	acc, err := s.resolver.Resolve(ctx, tx, tc.TenantID, RoleRounding)
	if err != nil {
		return fmt.Errorf("rounding difference %s: %w", residual.String(), err)
	}
	line := LineInput{AccountID: acc.ID, Description: "Rounding difference"}
	if residual.IsPositive() {
		line.Credit = residual
	} else {
		line.Debit = residual.Neg()
	}
	n := len(in.Lines)
	in.Lines = append(in.Lines[:n:n], line)
	return nil
}

func (s *journalService) VoidEntry(ctx context.Context, tc TenantContext, id int64, reason string) (int64, error) {
	if err := tc.validate(); err != nil {
		return 0, err
	}

	var reversalID int64
	err := s.store.WithTx(ctx, func(tx Store) error {
		original, err := tx.GetEntry(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}

		if strings.HasPrefix(original.SourceKey, salesInvoiceSourcePrefix) {
			return &SourceDocumentEntryError{EntryID: original.ID, SourceKey: original.SourceKey}
		}

		switch original.Status {
		case EntryStatusVoided:
			return notFound("voidable journal entry", id)
		case EntryStatusDraft:
			reversalID = original.ID
			return tx.UpdateEntryStatus(ctx, tc.TenantID, original.ID, EntryStatusVoided, nil)
		}

		description := fmt.Sprintf("Reversal of %s: %s", original.EntryNumber, original.Description)
		if reason != "" {
			description = fmt.Sprintf("%s (%s)", description, reason)
		}

		// Invert debits and credits for the reversal
		reversal := EntryInput{
			Date:        s.now(),
			Reference:   original.EntryNumber,
			Description: description,
			SourceKey:   fmt.Sprintf("reversal-%d", original.ID),
		}
		for _, line := range original.Lines {
			reversal.Lines = append(reversal.Lines, LineInput{
				AccountID:   line.AccountID,
				Description: line.Description,
				Debit:       line.Credit,
				Credit:      line.Debit,
			})
		}

		entry, err := s.createReversal(ctx, tx, tc, reversal, original.ID)
		if err != nil {
			return err
		}
		reversalID = entry.ID
		return tx.UpdateEntryStatus(ctx, tc.TenantID, original.ID, EntryStatusVoided, &entry.ID)
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("journal entry voided",
		zap.String("tenant", tc.TenantID),
		zap.Int64("entry_id", id),
		zap.Int64("reversal_id", reversalID),
	)
	return reversalID, nil
}

func (s *journalService) createReversal(ctx context.Context, tx Store, tc TenantContext, in EntryInput, originalID int64) (*JournalEntry, error) {
	in.Normalize(s.now())
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("reversal of entry %d: %w", originalID, err)
	}
	return s.insert(ctx, tx, tc, in, EntryStatusPosted, &originalID)
}

// insert numbers the entry from the gapless sequence and writes header and lines in one call.
func (s *journalService) insert(ctx context.Context, tx Store, tc TenantContext, in EntryInput, status EntryStatus, reversalOf *int64) (*JournalEntry, error) {
	seq, err := tx.NextSequence(ctx, tc.TenantID, journalTypeCode, in.Date.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to generate entry number: %w", err)
	}

	entry := &JournalEntry{
		TenantID:    tc.TenantID,
		EntryNumber: formatNumber(journalTypeCode, in.Date.Year(), seq),
		Date:        in.Date,
		Reference:   in.Reference,
		Description: in.Description,
		Status:      status,
		SourceKey:   in.SourceKey,
		ReversalOf:  reversalOf,
		CreatedBy:   tc.Actor.ID,
		CreatedAt:   s.now().UTC(),
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, JournalLine{
			AccountID:   line.AccountID,
			Description: line.Description,
			Debit:       line.Debit,
			Credit:      line.Credit,
		})
	}

	if err := tx.InsertEntry(ctx, tc.TenantID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *journalService) PostEntry(ctx context.Context, tc TenantContext, id int64) error {
	if err := tc.validate(); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntry(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return notFound("draft journal entry", id)
		}
		return tx.UpdateEntryStatus(ctx, tc.TenantID, id, EntryStatusPosted, nil)
	})
}

func (s *journalService) DeleteDraft(ctx context.Context, tc TenantContext, id int64) error {
	if err := tc.validate(); err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		entry, err := tx.GetEntry(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return notFound("draft journal entry", id)
		}
		return tx.DeleteEntry(ctx, tc.TenantID, id)
	})
}

func (s *journalService) GetEntry(ctx context.Context, tc TenantContext, id int64) (*JournalEntry, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.GetEntry(ctx, tc.TenantID, id)
}

func (s *journalService) ListEntries(ctx context.Context, tc TenantContext, f EntryFilter) ([]JournalEntry, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, tc.TenantID, f)
}

// formatNumber renders a document number such as JE-2025-00001.
func formatNumber(typeCode string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", typeCode, year, seq)
}
