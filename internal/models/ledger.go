package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

type DepositRequest struct {
	AccountID int64           `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r DepositRequest) Validate() error {
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: accountId is required", domain.ErrValidation)
	}
	return validateAmount(r.Amount)
}

type WithdrawRequest struct {
	AccountID int64           `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r WithdrawRequest) Validate() error {
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: accountId is required", domain.ErrValidation)
	}
	return validateAmount(r.Amount)
}

type LoanRequest struct {
	AccountID int64           `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r LoanRequest) Validate() error {
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: accountId is required", domain.ErrValidation)
	}
	return validateAmount(r.Amount)
}

type RepayLoanRequest struct {
	EntryID int64 `json:"entryId"`
}

func (r RepayLoanRequest) Validate() error {
	if r.EntryID <= 0 {
		return fmt.Errorf("%w: entryId is required", domain.ErrValidation)
	}
	return nil
}

type TransferRequest struct {
	SenderAccountID       int64           `json:"senderAccountId"`
	ReceiverAccountNumber int64           `json:"receiverAccountNumber"`
	Amount                decimal.Decimal `json:"amount"`
}

func (r TransferRequest) Validate() error {
	if r.SenderAccountID <= 0 {
		return fmt.Errorf("%w: senderAccountId is required", domain.ErrValidation)
	}
	if r.ReceiverAccountNumber <= 0 {
		return fmt.Errorf("%w: receiverAccountNumber is required", domain.ErrValidation)
	}
	return validateAmount(r.Amount)
}

func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return domain.ErrInvalidAmount
	}
	return nil
}

type EntryResponse struct {
	ID           int64           `json:"id"`
	AccountID    int64           `json:"accountId"`
	Reference    string          `json:"reference"`
	Kind         string          `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	LoanApproved bool            `json:"loanApproved,omitempty"`
	Timestamp    string          `json:"timestamp"`
}

// TransactionResponse is the result of a single-account posting:
// deposit, withdrawal, loan request, or loan repayment.
type TransactionResponse struct {
	Entry   EntryResponse   `json:"entry"`
	Balance decimal.Decimal `json:"balance"`
}

type TransferResponse struct {
	Reference       string          `json:"reference"`
	OutEntry        EntryResponse   `json:"outEntry"`
	InEntry         EntryResponse   `json:"inEntry"`
	SenderBalance   decimal.Decimal `json:"senderBalance"`
	ReceiverBalance decimal.Decimal `json:"receiverBalance"`
}

func MapEntry(entry domain.Entry) EntryResponse {
	return EntryResponse{
		ID:           entry.ID,
		AccountID:    entry.AccountID,
		Reference:    entry.Reference,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		LoanApproved: entry.LoanApproved,
		Timestamp:    entry.Timestamp.UTC().Format(timestampLayout),
	}
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"
