package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

func TestAmountValidation(t *testing.T) {
	reqs := []interface{ Validate() error }{
		DepositRequest{AccountID: 1, Amount: decimal.Zero},
		WithdrawRequest{AccountID: 1, Amount: decimal.RequireFromString("-5")},
		LoanRequest{AccountID: 1, Amount: decimal.Zero},
		TransferRequest{SenderAccountID: 1, ReceiverAccountNumber: 2, Amount: decimal.Zero},
	}

	for _, req := range reqs {
		assert.ErrorIs(t, req.Validate(), domain.ErrInvalidAmount)
	}
}

func TestRequestsNeedAccountID(t *testing.T) {
	// Missing identifiers are malformed requests, not failed lookups.
	assert.ErrorIs(t, DepositRequest{Amount: decimal.RequireFromString("1")}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, WithdrawRequest{Amount: decimal.RequireFromString("1")}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, LoanRequest{Amount: decimal.RequireFromString("1")}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, RepayLoanRequest{}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, TransferRequest{SenderAccountID: 1, Amount: decimal.RequireFromString("1")}.Validate(), domain.ErrValidation)
	assert.ErrorIs(t, StatementRequest{}.Validate(), domain.ErrValidation)
}

func TestStatementRequestRange(t *testing.T) {
	req := StatementRequest{AccountID: 1, StartDate: "2026-03-01", EndDate: "2026-03-05"}
	require.NoError(t, req.Validate())

	from, to, err := req.Range()
	require.NoError(t, err)
	require.NotNil(t, from)
	require.NotNil(t, to)

	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC), *to, "end bound is exclusive and covers the whole end date")
}

func TestStatementRequestUnranged(t *testing.T) {
	req := StatementRequest{AccountID: 1}
	require.NoError(t, req.Validate())

	from, to, err := req.Range()
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)
}

func TestOpenAccountRequestKinds(t *testing.T) {
	assert.NoError(t, OpenAccountRequest{OwnerID: "cust-1", Kind: "savings"}.Validate())
	assert.NoError(t, OpenAccountRequest{OwnerID: "cust-1", Kind: "CURRENT"}.Validate())
	assert.ErrorIs(t, OpenAccountRequest{OwnerID: "cust-1", Kind: "CHECKING"}.Validate(), domain.ErrValidation)
}

func TestMapEntryFormatsTimestamp(t *testing.T) {
	entry := domain.Entry{
		ID:        7,
		AccountID: 1,
		Kind:      domain.EntryKindDeposit,
		Amount:    decimal.RequireFromString("10"),
		Timestamp: time.Date(2026, time.March, 1, 12, 30, 45, 123000000, time.UTC),
	}

	mapped := MapEntry(entry)
	assert.Equal(t, "2026-03-01T12:30:45.123Z", mapped.Timestamp)
	assert.Equal(t, "DEPOSIT", mapped.Kind)
}
