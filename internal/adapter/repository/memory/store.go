// Package memory keeps the whole ledger in process memory. It is the
// zero-dependency backend used by the service unit tests; a single
// mutex stands in for the storage engine's transaction isolation.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

const defaultBaseAccountNumber = 1000000

type Store struct {
	mu          sync.Mutex
	accounts    map[int64]*domain.Account
	entries     map[int64]*domain.Entry
	nextAccount int64
	nextEntry   int64
	baseNumber  int64

	// NowFunc stamps postings; tests override it to pin timestamps.
	NowFunc func() time.Time
}

func NewStore() *Store {
	return &Store{
		accounts:   make(map[int64]*domain.Account),
		entries:    make(map[int64]*domain.Entry),
		baseNumber: defaultBaseAccountNumber,
		NowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(_ context.Context, account domain.Account) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccount++
	account.ID = s.nextAccount
	account.AccountNumber = s.baseNumber + account.ID
	now := s.NowFunc()
	account.OpenedAt = now
	account.UpdatedAt = now

	stored := account
	s.accounts[account.ID] = &stored
	return account, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return *account, nil
}

func (s *Store) GetByAccountNumber(_ context.Context, accountNumber int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if account.AccountNumber == accountNumber {
			return *account, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) MarkBankrupt(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.IsBankrupt = true
	account.UpdatedAt = s.NowFunc()
	return nil
}

func (s *Store) Deposit(_ context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.postLocked(domain.EntryKindDeposit, accountID, amount, reference, false, amount, false)
}

func (s *Store) Withdraw(_ context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.postLocked(domain.EntryKindWithdrawal, accountID, amount, reference, false, amount.Neg(), true)
}

func (s *Store) RecordLoan(_ context.Context, accountID int64, amount decimal.Decimal, reference string, creditBalance bool) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	effect := decimal.Zero
	if creditBalance {
		effect = amount
	}
	return s.postLocked(domain.EntryKindLoan, accountID, amount, reference, true, effect, false)
}

func (s *Store) postLocked(
	kind domain.EntryKind,
	accountID int64,
	amount decimal.Decimal,
	reference string,
	loanApproved bool,
	effect decimal.Decimal,
	requireCover bool,
) (domain.Entry, error) {
	account, ok := s.accounts[accountID]
	if !ok {
		return domain.Entry{}, domain.ErrAccountNotFound
	}

	if requireCover && account.Balance.LessThan(amount) {
		return domain.Entry{}, domain.ErrInsufficientFunds
	}

	now := s.NowFunc()
	account.Balance = account.Balance.Add(effect)
	account.UpdatedAt = now

	s.nextEntry++
	entry := domain.Entry{
		ID:           s.nextEntry,
		AccountID:    accountID,
		Reference:    reference,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: account.Balance,
		LoanApproved: loanApproved,
		Timestamp:    now,
	}
	stored := entry
	s.entries[entry.ID] = &stored

	return entry, nil
}

func (s *Store) RepayLoan(_ context.Context, entryID int64) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok || entry.Kind != domain.EntryKindLoan {
		return domain.Entry{}, domain.ErrRecordNotFound
	}
	if !entry.LoanApproved {
		return domain.Entry{}, domain.ErrLoanNotApproved
	}

	account, ok := s.accounts[entry.AccountID]
	if !ok {
		return domain.Entry{}, domain.ErrAccountNotFound
	}

	if entry.Amount.GreaterThanOrEqual(account.Balance) {
		return domain.Entry{}, domain.ErrInsufficientFunds
	}

	account.Balance = account.Balance.Sub(entry.Amount)
	account.UpdatedAt = s.NowFunc()
	entry.Kind = domain.EntryKindLoanRepaid
	entry.BalanceAfter = account.Balance

	return *entry, nil
}

func (s *Store) Transfer(_ context.Context, senderID, receiverID int64, amount decimal.Decimal, reference string) (domain.Entry, domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.accounts[senderID]
	if !ok {
		return domain.Entry{}, domain.Entry{}, domain.ErrAccountNotFound
	}
	receiver, ok := s.accounts[receiverID]
	if !ok {
		return domain.Entry{}, domain.Entry{}, domain.ErrAccountNotFound
	}

	if sender.Balance.LessThan(amount) {
		return domain.Entry{}, domain.Entry{}, domain.ErrInsufficientFunds
	}

	outEntry, err := s.postLocked(domain.EntryKindTransferOut, sender.ID, amount, reference, false, amount.Neg(), true)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}
	inEntry, err := s.postLocked(domain.EntryKindTransferIn, receiver.ID, amount, reference, false, amount, false)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	return outEntry, inEntry, nil
}

func (s *Store) GetEntry(_ context.Context, entryID int64) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return domain.Entry{}, domain.ErrRecordNotFound
	}
	return *entry, nil
}

func (s *Store) CountApprovedLoans(_ context.Context, accountID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.entries {
		if entry.AccountID != accountID || !entry.LoanApproved {
			continue
		}
		if entry.Kind == domain.EntryKindLoan || entry.Kind == domain.EntryKindLoanRepaid {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListLoanEntries(_ context.Context, accountID int64) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Entry
	for _, entry := range s.entries {
		if entry.AccountID != accountID {
			continue
		}
		if entry.Kind == domain.EntryKindLoan || entry.Kind == domain.EntryKindLoanRepaid {
			out = append(out, *entry)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) ListEntries(_ context.Context, accountID int64, from, to *time.Time) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Entry
	for _, entry := range s.entries {
		if entry.AccountID != accountID {
			continue
		}
		if from != nil && entry.Timestamp.Before(*from) {
			continue
		}
		if to != nil && !entry.Timestamp.Before(*to) {
			continue
		}
		out = append(out, *entry)
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []domain.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
