// Package memory provides an in-process core.Store for tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"erp-ledger/internal/core"
)

// Store keeps every tenant's data in maps guarded by one RWMutex.
// WithTx holds the write lock for the whole callback and restores a snapshot on error.
type Store struct {
	mu   sync.RWMutex
	data *state
}

func New() *Store {
	return &Store{data: newState()}
}

type seqKey struct {
	tenantID string
	typeCode string
	year     int
}

type state struct {
	nextID    int64
	accounts  map[int64]core.Account
	entries   map[int64]core.JournalEntry
	invoices  map[int64]core.TaxInvoice
	sequences map[seqKey]int64
}

func newState() *state {
	return &state{
		accounts:  make(map[int64]core.Account),
		entries:   make(map[int64]core.JournalEntry),
		invoices:  make(map[int64]core.TaxInvoice),
		sequences: make(map[seqKey]int64),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.nextID = st.nextID
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.entries {
		c.entries[k] = copyEntry(v)
	}
	for k, v := range st.invoices {
		c.invoices[k] = copyInvoice(v)
	}
	for k, v := range st.sequences {
		c.sequences[k] = v
	}
	return c
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

// WithTx runs fn against a transactional view. Writes made through the view are
// discarded if fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txView{data: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// write applies fn atomically: a failed call leaves no partial change behind.
func (s *Store) write(fn func(st *state) error) error {
	return s.WithTx(context.Background(), func(tx core.Store) error {
		return fn(tx.(*txView).data)
	})
}

func (s *Store) GetAccountByCode(_ context.Context, tenantID, code string) (acc *core.Account, err error) {
	err = s.read(func(st *state) error { acc, err = st.getAccountByCode(tenantID, code); return err })
	return acc, err
}

func (s *Store) InsertAccount(_ context.Context, tenantID string, a *core.Account) error {
	return s.write(func(st *state) error { return st.insertAccount(tenantID, a) })
}

func (s *Store) GetAccount(_ context.Context, tenantID string, id int64) (acc *core.Account, err error) {
	err = s.read(func(st *state) error { acc, err = st.getAccount(tenantID, id); return err })
	return acc, err
}

func (s *Store) ListAccounts(_ context.Context, tenantID string) (out []core.Account, err error) {
	err = s.read(func(st *state) error { out = st.listAccounts(tenantID); return nil })
	return out, err
}

func (s *Store) UpdateAccount(_ context.Context, tenantID string, a *core.Account) error {
	return s.write(func(st *state) error { return st.updateAccount(tenantID, a) })
}

func (s *Store) DeleteAccount(_ context.Context, tenantID string, id int64) error {
	return s.write(func(st *state) error { return st.deleteAccount(tenantID, id) })
}

func (s *Store) AccountReferenced(_ context.Context, tenantID string, id int64) (used bool, err error) {
	err = s.read(func(st *state) error { used = st.accountReferenced(tenantID, id); return nil })
	return used, err
}

func (s *Store) NextSequence(_ context.Context, tenantID, typeCode string, year int) (n int64, err error) {
	err = s.write(func(st *state) error { n = st.nextSequence(tenantID, typeCode, year); return nil })
	return n, err
}

func (s *Store) InsertEntry(_ context.Context, tenantID string, e *core.JournalEntry) error {
	return s.write(func(st *state) error { return st.insertEntry(tenantID, e) })
}

func (s *Store) GetEntry(_ context.Context, tenantID string, id int64) (e *core.JournalEntry, err error) {
	err = s.read(func(st *state) error { e, err = st.getEntry(tenantID, id); return err })
	return e, err
}

func (s *Store) ListEntries(_ context.Context, tenantID string, f core.EntryFilter) (out []core.JournalEntry, err error) {
	err = s.read(func(st *state) error { out = st.listEntries(tenantID, f); return nil })
	return out, err
}

func (s *Store) UpdateEntryStatus(_ context.Context, tenantID string, id int64, status core.EntryStatus, reversedBy *int64) error {
	return s.write(func(st *state) error { return st.updateEntryStatus(tenantID, id, status, reversedBy) })
}

func (s *Store) DeleteEntry(_ context.Context, tenantID string, id int64) error {
	return s.write(func(st *state) error { return st.deleteEntry(tenantID, id) })
}

func (s *Store) SumLedgerLines(_ context.Context, tenantID string, r core.DateRange) (out []core.AccountTotals, err error) {
	err = s.read(func(st *state) error { out = st.sumLedgerLines(tenantID, r); return nil })
	return out, err
}

func (s *Store) InsertInvoice(_ context.Context, tenantID string, inv *core.TaxInvoice) error {
	return s.write(func(st *state) error { return st.insertInvoice(tenantID, inv) })
}

func (s *Store) GetInvoice(_ context.Context, tenantID string, id int64) (inv *core.TaxInvoice, err error) {
	err = s.read(func(st *state) error { inv, err = st.getInvoice(tenantID, id); return err })
	return inv, err
}

func (s *Store) UpdateInvoice(_ context.Context, tenantID string, inv *core.TaxInvoice) error {
	return s.write(func(st *state) error { return st.updateInvoice(tenantID, inv) })
}

func (s *Store) ListInvoices(_ context.Context, tenantID string, f core.InvoiceFilter) (out []core.TaxInvoice, err error) {
	err = s.read(func(st *state) error { out = st.listInvoices(tenantID, f); return nil })
	return out, err
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// txView operates on the parent's state while the parent holds the write lock.
type txView struct {
	data *state
}

func (tv *txView) WithTx(_ context.Context, fn func(tx core.Store) error) error {
	return fn(tv)
}

func (tv *txView) GetAccountByCode(_ context.Context, tenantID, code string) (*core.Account, error) {
	return tv.data.getAccountByCode(tenantID, code)
}

func (tv *txView) InsertAccount(_ context.Context, tenantID string, a *core.Account) error {
	return tv.data.insertAccount(tenantID, a)
}

func (tv *txView) GetAccount(_ context.Context, tenantID string, id int64) (*core.Account, error) {
	return tv.data.getAccount(tenantID, id)
}

func (tv *txView) ListAccounts(_ context.Context, tenantID string) ([]core.Account, error) {
	return tv.data.listAccounts(tenantID), nil
}

func (tv *txView) UpdateAccount(_ context.Context, tenantID string, a *core.Account) error {
	return tv.data.updateAccount(tenantID, a)
}

func (tv *txView) DeleteAccount(_ context.Context, tenantID string, id int64) error {
	return tv.data.deleteAccount(tenantID, id)
}

func (tv *txView) AccountReferenced(_ context.Context, tenantID string, id int64) (bool, error) {
	return tv.data.accountReferenced(tenantID, id), nil
}

func (tv *txView) NextSequence(_ context.Context, tenantID, typeCode string, year int) (int64, error) {
	return tv.data.nextSequence(tenantID, typeCode, year), nil
}

func (tv *txView) InsertEntry(_ context.Context, tenantID string, e *core.JournalEntry) error {
	return tv.data.insertEntry(tenantID, e)
}

func (tv *txView) GetEntry(_ context.Context, tenantID string, id int64) (*core.JournalEntry, error) {
	return tv.data.getEntry(tenantID, id)
}

func (tv *txView) ListEntries(_ context.Context, tenantID string, f core.EntryFilter) ([]core.JournalEntry, error) {
	return tv.data.listEntries(tenantID, f), nil
}

func (tv *txView) UpdateEntryStatus(_ context.Context, tenantID string, id int64, status core.EntryStatus, reversedBy *int64) error {
	return tv.data.updateEntryStatus(tenantID, id, status, reversedBy)
}

func (tv *txView) DeleteEntry(_ context.Context, tenantID string, id int64) error {
	return tv.data.deleteEntry(tenantID, id)
}

func (tv *txView) SumLedgerLines(_ context.Context, tenantID string, r core.DateRange) ([]core.AccountTotals, error) {
	return tv.data.sumLedgerLines(tenantID, r), nil
}

func (tv *txView) InsertInvoice(_ context.Context, tenantID string, inv *core.TaxInvoice) error {
	return tv.data.insertInvoice(tenantID, inv)
}

func (tv *txView) GetInvoice(_ context.Context, tenantID string, id int64) (*core.TaxInvoice, error) {
	return tv.data.getInvoice(tenantID, id)
}

func (tv *txView) UpdateInvoice(_ context.Context, tenantID string, inv *core.TaxInvoice) error {
	return tv.data.updateInvoice(tenantID, inv)
}

func (tv *txView) ListInvoices(_ context.Context, tenantID string, f core.InvoiceFilter) ([]core.TaxInvoice, error) {
	return tv.data.listInvoices(tenantID, f), nil
}

// =============================================================================
// STATE OPERATIONS (caller holds the lock)
// =============================================================================

func (st *state) getAccountByCode(tenantID, code string) (*core.Account, error) {
	for _, a := range st.accounts {
		if a.TenantID == tenantID && a.Code == code {
			acc := a
			return &acc, nil
		}
	}
	return nil, &core.NotFoundError{Kind: "account", ID: code}
}

func (st *state) insertAccount(tenantID string, a *core.Account) error {
	if _, err := st.getAccountByCode(tenantID, a.Code); err == nil {
		return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
	}
	a.ID = st.id()
	a.TenantID = tenantID
	st.accounts[a.ID] = *a
	return nil
}

func (st *state) getAccount(tenantID string, id int64) (*core.Account, error) {
	a, ok := st.accounts[id]
	if !ok || a.TenantID != tenantID {
		return nil, &core.NotFoundError{Kind: "account", ID: fmt.Sprint(id)}
	}
	return &a, nil
}

func (st *state) listAccounts(tenantID string) []core.Account {
	var out []core.Account
	for _, a := range st.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (st *state) updateAccount(tenantID string, a *core.Account) error {
	existing, err := st.getAccount(tenantID, a.ID)
	if err != nil {
		return err
	}
	if other, err := st.getAccountByCode(tenantID, a.Code); err == nil && other.ID != a.ID {
		return fmt.Errorf("account %s: %w", a.Code, core.ErrDuplicateAccount)
	}
	existing.Code = a.Code
	existing.Name = a.Name
	st.accounts[a.ID] = *existing
	return nil
}

func (st *state) deleteAccount(tenantID string, id int64) error {
	if _, err := st.getAccount(tenantID, id); err != nil {
		return err
	}
	delete(st.accounts, id)
	return nil
}

func (st *state) accountReferenced(tenantID string, id int64) bool {
	for _, e := range st.entries {
		if e.TenantID != tenantID {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == id {
				return true
			}
		}
	}
	return false
}

func (st *state) nextSequence(tenantID, typeCode string, year int) int64 {
	k := seqKey{tenantID: tenantID, typeCode: typeCode, year: year}
	st.sequences[k]++
	return st.sequences[k]
}

func (st *state) insertEntry(tenantID string, e *core.JournalEntry) error {
	if e.SourceKey != "" {
		for _, existing := range st.entries {
			if existing.TenantID == tenantID && existing.SourceKey == e.SourceKey {
				return &core.DuplicateEntryError{SourceKey: e.SourceKey, ExistingID: existing.ID}
			}
		}
	}
	e.ID = st.id()
	e.TenantID = tenantID
	for i := range e.Lines {
		e.Lines[i].ID = st.id()
		e.Lines[i].JournalID = e.ID
	}
	st.entries[e.ID] = copyEntry(*e)
	return nil
}

func (st *state) getEntry(tenantID string, id int64) (*core.JournalEntry, error) {
	e, ok := st.entries[id]
	if !ok || e.TenantID != tenantID {
		return nil, &core.NotFoundError{Kind: "journal entry", ID: fmt.Sprint(id)}
	}
	c := copyEntry(e)
	return &c, nil
}

func (st *state) listEntries(tenantID string, f core.EntryFilter) []core.JournalEntry {
	var out []core.JournalEntry
	for _, e := range st.entries {
		if e.TenantID != tenantID || !f.Range.Contains(e.Date) {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) updateEntryStatus(tenantID string, id int64, status core.EntryStatus, reversedBy *int64) error {
	e, ok := st.entries[id]
	if !ok || e.TenantID != tenantID {
		return &core.NotFoundError{Kind: "journal entry", ID: fmt.Sprint(id)}
	}
	e.Status = status
	if reversedBy != nil {
		rb := *reversedBy
		e.ReversedBy = &rb
	}
	st.entries[id] = e
	return nil
}

func (st *state) deleteEntry(tenantID string, id int64) error {
	e, ok := st.entries[id]
	if !ok || e.TenantID != tenantID || e.Status != core.EntryStatusDraft {
		return &core.NotFoundError{Kind: "draft journal entry", ID: fmt.Sprint(id)}
	}
	delete(st.entries, id)
	return nil
}

func (st *state) sumLedgerLines(tenantID string, r core.DateRange) []core.AccountTotals {
	byAccount := make(map[int64]*core.AccountTotals)
	for _, e := range st.entries {
		if e.TenantID != tenantID || !e.AffectsBalances() || !r.Contains(e.Date) {
			continue
		}
		for _, l := range e.Lines {
			t, ok := byAccount[l.AccountID]
			if !ok {
				t = &core.AccountTotals{AccountID: l.AccountID}
				byAccount[l.AccountID] = t
			}
			t.TotalDebit = t.TotalDebit.Add(l.Debit)
			t.TotalCredit = t.TotalCredit.Add(l.Credit)
		}
	}
	out := make([]core.AccountTotals, 0, len(byAccount))
	for _, t := range byAccount {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (st *state) insertInvoice(tenantID string, inv *core.TaxInvoice) error {
	inv.ID = st.id()
	inv.TenantID = tenantID
	st.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (st *state) getInvoice(tenantID string, id int64) (*core.TaxInvoice, error) {
	inv, ok := st.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, &core.NotFoundError{Kind: "invoice", ID: fmt.Sprint(id)}
	}
	c := copyInvoice(inv)
	return &c, nil
}

func (st *state) updateInvoice(tenantID string, inv *core.TaxInvoice) error {
	existing, ok := st.invoices[inv.ID]
	if !ok || existing.TenantID != tenantID {
		return &core.NotFoundError{Kind: "invoice", ID: fmt.Sprint(inv.ID)}
	}
	inv.TenantID = tenantID
	st.invoices[inv.ID] = copyInvoice(*inv)
	return nil
}

func (st *state) listInvoices(tenantID string, f core.InvoiceFilter) []core.TaxInvoice {
	var out []core.TaxInvoice
	for _, inv := range st.invoices {
		if inv.TenantID == tenantID && f.Matches(inv) {
			out = append(out, copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyEntry(e core.JournalEntry) core.JournalEntry {
	e.Lines = append([]core.JournalLine(nil), e.Lines...)
	if e.ReversalOf != nil {
		v := *e.ReversalOf
		e.ReversalOf = &v
	}
	if e.ReversedBy != nil {
		v := *e.ReversedBy
		e.ReversedBy = &v
	}
	return e
}

func copyInvoice(inv core.TaxInvoice) core.TaxInvoice {
	inv.Items = append([]core.InvoiceLineItem(nil), inv.Items...)
	if inv.PostingRef != nil {
		v := *inv.PostingRef
		inv.PostingRef = &v
	}
	if inv.ApprovedAt != nil {
		v := *inv.ApprovedAt
		inv.ApprovedAt = &v
	}
	if inv.PostedAt != nil {
		v := *inv.PostedAt
		inv.PostedAt = &v
	}
	return inv
}

var _ core.Store = (*Store)(nil)
var _ core.Store = (*txView)(nil)
