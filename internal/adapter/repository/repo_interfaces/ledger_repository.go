package repo_interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

// LedgerRepository owns every balance mutation. Each mutating method is
// one atomic unit: the balance change and its entry commit together or
// not at all. Implementations must also re-check funding guards under
// the transaction, whatever the service validated beforehand.
type LedgerRepository interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error)

	// RecordLoan writes an approved loan entry. The balance is only
	// credited when creditBalance is set; by default approval is a memo.
	RecordLoan(ctx context.Context, accountID int64, amount decimal.Decimal, reference string, creditBalance bool) (domain.Entry, error)

	// RepayLoan debits the loan amount and transitions the entry to
	// LOAN_REPAID in the same transaction. The loan amount must be
	// strictly less than the current balance.
	RepayLoan(ctx context.Context, entryID int64) (domain.Entry, error)

	// Transfer debits the sender and credits the receiver atomically,
	// producing a TRANSFER_OUT and a TRANSFER_IN entry that share the
	// reference. Account rows are locked in ascending account-ID order.
	Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal, reference string) (domain.Entry, domain.Entry, error)

	GetEntry(ctx context.Context, entryID int64) (domain.Entry, error)
	CountApprovedLoans(ctx context.Context, accountID int64) (int, error)
	ListLoanEntries(ctx context.Context, accountID int64) ([]domain.Entry, error)

	// ListEntries returns the account's entries ordered by timestamp
	// ascending, optionally restricted to the half-open window [from, to).
	ListEntries(ctx context.Context, accountID int64, from, to *time.Time) ([]domain.Entry, error)
}
