package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/models"
)

func TestOpenAccountAssignsNumber(t *testing.T) {
	f := newFixture()

	first := f.openAccount(t, "cust-1", "")
	second := f.openAccount(t, "cust-2", "")

	assert.NotZero(t, first.AccountNumber)
	assert.NotEqual(t, first.AccountNumber, second.AccountNumber)
	assert.Equal(t, "SAVINGS", first.Kind)
	assert.True(t, first.Balance.Equal(decimal.Zero))
}

func TestOpenAccountPostsInitialDeposit(t *testing.T) {
	f := newFixture()

	account := f.openAccount(t, "cust-1", "250.75")
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("250.75")))

	entries, err := f.store.ListEntries(context.Background(), account.ID, nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.EntryKindDeposit, entries[0].Kind)
}

func TestOpenAccountValidation(t *testing.T) {
	f := newFixture()

	cases := []models.OpenAccountRequest{
		{OwnerID: "", Kind: "SAVINGS"},
		{OwnerID: "cust-1", Kind: "CHECKING"},
	}

	for _, req := range cases {
		resp, err := f.accounts.OpenAccount(context.Background(), req)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	}
}

func TestFindByAccountNumber(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "")

	resp, err := f.accounts.FindByAccountNumber(context.Background(), account.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resp.Data.ID)

	missing, err := f.accounts.FindByAccountNumber(context.Background(), 123)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", missing.Code)
}

func TestMarkBankrupt(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "")

	resp, err := f.accounts.MarkBankrupt(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, resp.Data.IsBankrupt)

	missing, err := f.accounts.MarkBankrupt(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", missing.Code)
}
