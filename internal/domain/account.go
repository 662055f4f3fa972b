package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountKind string

const (
	AccountKindSavings AccountKind = "SAVINGS"
	AccountKindCurrent AccountKind = "CURRENT"
)

func (k AccountKind) Valid() bool {
	return k == AccountKindSavings || k == AccountKindCurrent
}

// Account is the ledger's view of a customer account. Balance is only
// ever mutated by a posting that writes a matching Entry in the same
// transaction. Accounts are never deleted, only marked bankrupt.
type Account struct {
	ID            int64
	OwnerID       string
	AccountNumber int64
	Kind          AccountKind
	Balance       decimal.Decimal
	IsBankrupt    bool
	OpenedAt      time.Time
	UpdatedAt     time.Time
}
