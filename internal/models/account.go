package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

type OpenAccountRequest struct {
	OwnerID        string           `json:"ownerId"`
	Kind           string           `json:"kind"`
	InitialDeposit *decimal.Decimal `json:"initialDeposit,omitempty"`
}

func (r OpenAccountRequest) Validate() error {
	var errs []string

	if strings.TrimSpace(r.OwnerID) == "" {
		errs = append(errs, "ownerId is required")
	}
	if !domain.AccountKind(strings.ToUpper(strings.TrimSpace(r.Kind))).Valid() {
		errs = append(errs, fmt.Sprintf("kind must be %s or %s", domain.AccountKindSavings, domain.AccountKindCurrent))
	}
	if r.InitialDeposit != nil && r.InitialDeposit.LessThan(decimal.Zero) {
		errs = append(errs, "initialDeposit cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(errs, "; "))
	}
	return nil
}

type AccountResponse struct {
	ID            int64           `json:"id"`
	OwnerID       string          `json:"ownerId"`
	AccountNumber int64           `json:"accountNumber"`
	Kind          string          `json:"kind"`
	Balance       decimal.Decimal `json:"balance"`
	IsBankrupt    bool            `json:"isBankrupt"`
	OpenedAt      string          `json:"openedAt"`
}

func MapAccount(account domain.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID,
		OwnerID:       account.OwnerID,
		AccountNumber: account.AccountNumber,
		Kind:          string(account.Kind),
		Balance:       account.Balance,
		IsBankrupt:    account.IsBankrupt,
		OpenedAt:      account.OpenedAt.UTC().Format(timestampLayout),
	}
}
