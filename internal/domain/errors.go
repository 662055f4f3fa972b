package domain

import "errors"

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameAccount       = errors.New("sender and receiver accounts are the same")
	ErrLoanLimitExceeded = errors.New("loan limit exceeded")
	ErrLoanNotApproved   = errors.New("loan is not approved")
	ErrAccountBankrupt   = errors.New("account is bankrupt")
	ErrValidation        = errors.New("validation failed")
)

// Code maps an operation error to the stable code the surrounding layer
// renders. Anything outside the taxonomy is a storage failure.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrAccountNotFound):
		return "ACCOUNT_NOT_FOUND"
	case errors.Is(err, ErrSameAccount):
		return "SAME_ACCOUNT"
	case errors.Is(err, ErrLoanLimitExceeded):
		return "LOAN_LIMIT_EXCEEDED"
	case errors.Is(err, ErrLoanNotApproved):
		return "NOT_APPROVED"
	case errors.Is(err, ErrAccountBankrupt):
		return "ACCOUNT_BANKRUPT"
	case errors.Is(err, ErrRecordNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	default:
		return "STORAGE_FAILURE"
	}
}
