package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindDeposit     EntryKind = "DEPOSIT"
	EntryKindWithdrawal  EntryKind = "WITHDRAWAL"
	EntryKindLoan        EntryKind = "LOAN"
	EntryKindLoanRepaid  EntryKind = "LOAN_REPAID"
	EntryKindTransferOut EntryKind = "TRANSFER_OUT"
	EntryKindTransferIn  EntryKind = "TRANSFER_IN"
)

// Entry is one committed, balance-affecting event on an account. Entries
// are append-only; the single allowed mutation is the LOAN -> LOAN_REPAID
// transition when a specific loan is settled. Amount is always stored
// positive, direction comes from Kind. The two legs of a transfer share
// one Reference.
type Entry struct {
	ID           int64
	AccountID    int64
	Reference    string
	Kind         EntryKind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
	LoanApproved bool
	Timestamp    time.Time
}

// BalanceEffect returns the signed contribution of the entry to the
// owning account's balance. An approved loan is a memo until it is
// repaid, so LOAN contributes nothing.
func (e Entry) BalanceEffect() decimal.Decimal {
	switch e.Kind {
	case EntryKindDeposit, EntryKindTransferIn:
		return e.Amount
	case EntryKindWithdrawal, EntryKindTransferOut, EntryKindLoanRepaid:
		return e.Amount.Neg()
	default:
		return decimal.Zero
	}
}
