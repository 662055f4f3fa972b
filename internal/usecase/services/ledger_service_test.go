package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/memory"
	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/models"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/services"
)

type recordedNotice struct {
	OwnerID  string
	Subject  string
	Template string
	Payload  map[string]any
}

type notifierRecorder struct {
	mu      sync.Mutex
	notices []recordedNotice
	fail    error
}

func (r *notifierRecorder) Notify(_ context.Context, ownerID, subject, templateKey string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}
	r.notices = append(r.notices, recordedNotice{
		OwnerID:  ownerID,
		Subject:  subject,
		Template: templateKey,
		Payload:  payload,
	})
	return nil
}

func (r *notifierRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

type fixture struct {
	store    *memory.Store
	notifier *notifierRecorder
	accounts *services.AccountService
	ledger   *services.LedgerService
	reports  *services.ReportService
}

func newFixture() *fixture {
	store := memory.NewStore()
	rec := &notifierRecorder{}
	policy := services.NewLoanPolicy(store, 3)

	return &fixture{
		store:    store,
		notifier: rec,
		accounts: services.NewAccountService(store, store),
		ledger:   services.NewLedgerService(store, store, policy, rec, false),
		reports:  services.NewReportService(store, store),
	}
}

func (f *fixture) openAccount(t *testing.T, owner string, balance string) models.AccountResponse {
	t.Helper()

	req := models.OpenAccountRequest{OwnerID: owner, Kind: "SAVINGS"}
	if balance != "" {
		amount := decimal.RequireFromString(balance)
		req.InitialDeposit = &amount
	}

	resp, err := f.accounts.OpenAccount(context.Background(), req)
	require.NoError(t, err)
	require.True(t, resp.Success)
	return *resp.Data
}

func TestDepositIncreasesBalance(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "")

	resp, err := f.ledger.Deposit(context.Background(), models.DepositRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("150.50"),
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	assert.Equal(t, string(domain.EntryKindDeposit), resp.Data.Entry.Kind)
	assert.True(t, resp.Data.Balance.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, 1, f.notifier.count())
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "")

	for _, amount := range []string{"0", "-10"} {
		resp, err := f.ledger.Deposit(context.Background(), models.DepositRequest{
			AccountID: account.ID,
			Amount:    decimal.RequireFromString(amount),
		})
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
		assert.False(t, resp.Success)
		assert.Equal(t, "INVALID_AMOUNT", resp.Code)
	}

	assert.Equal(t, 0, f.notifier.count())
}

func TestWithdrawGuardsBalance(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "100")

	resp, err := f.ledger.Withdraw(context.Background(), models.WithdrawRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("40"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Data.Balance.Equal(decimal.RequireFromString("60")))

	over, err := f.ledger.Withdraw(context.Background(), models.WithdrawRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("60.01"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "INSUFFICIENT_FUNDS", over.Code)

	stored, err := f.store.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("60")))
}

func TestWithdrawUnknownAccount(t *testing.T) {
	f := newFixture()

	resp, err := f.ledger.Withdraw(context.Background(), models.WithdrawRequest{
		AccountID: 9999,
		Amount:    decimal.RequireFromString("10"),
	})
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", resp.Code)
}

func TestLoanIsMemoUntilRepaid(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "500")

	resp, err := f.ledger.RequestLoan(context.Background(), models.LoanRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("200"),
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	assert.Equal(t, string(domain.EntryKindLoan), resp.Data.Entry.Kind)
	assert.True(t, resp.Data.Entry.LoanApproved)

	stored, err := f.store.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("500")), "approval must not move the balance")
}

func TestLoanCreditsBalanceWhenConfigured(t *testing.T) {
	store := memory.NewStore()
	rec := &notifierRecorder{}
	policy := services.NewLoanPolicy(store, 3)
	ledger := services.NewLedgerService(store, store, policy, rec, true)
	accounts := services.NewAccountService(store, store)

	opened, err := accounts.OpenAccount(context.Background(), models.OpenAccountRequest{OwnerID: "cust-1", Kind: "CURRENT"})
	require.NoError(t, err)

	resp, err := ledger.RequestLoan(context.Background(), models.LoanRequest{
		AccountID: opened.Data.ID,
		Amount:    decimal.RequireFromString("300"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Data.Balance.Equal(decimal.RequireFromString("300")))
}

func TestRepayLoanLifecycle(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "500")

	loan, err := f.ledger.RequestLoan(context.Background(), models.LoanRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	repaid, err := f.ledger.RepayLoan(context.Background(), models.RepayLoanRequest{EntryID: loan.Data.Entry.ID})
	require.NoError(t, err)
	assert.Equal(t, string(domain.EntryKindLoanRepaid), repaid.Data.Entry.Kind)
	assert.True(t, repaid.Data.Balance.Equal(decimal.RequireFromString("300")))

	// A settled loan is no longer repayable.
	again, err := f.ledger.RepayLoan(context.Background(), models.RepayLoanRequest{EntryID: loan.Data.Entry.ID})
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Equal(t, "NOT_FOUND", again.Code)
}

func TestRepayLoanRequiresStrictCover(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "200")

	loan, err := f.ledger.RequestLoan(context.Background(), models.LoanRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	resp, err := f.ledger.RepayLoan(context.Background(), models.RepayLoanRequest{EntryID: loan.Data.Entry.ID})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, "INSUFFICIENT_FUNDS", resp.Code)

	stored, err := f.store.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("200")))
}

func TestRepayLoanUnknownEntry(t *testing.T) {
	f := newFixture()

	resp, err := f.ledger.RepayLoan(context.Background(), models.RepayLoanRequest{EntryID: 42})
	require.ErrorIs(t, err, domain.ErrRecordNotFound)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestLoanLimitCountsRepaidLoans(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "1000")

	var lastLoanID int64
	for i := 0; i < 3; i++ {
		resp, err := f.ledger.RequestLoan(context.Background(), models.LoanRequest{
			AccountID: account.ID,
			Amount:    decimal.RequireFromString("50"),
		})
		require.NoError(t, err)
		lastLoanID = resp.Data.Entry.ID
	}

	// Settling a loan does not free a slot; the cap is lifetime.
	_, err := f.ledger.RepayLoan(context.Background(), models.RepayLoanRequest{EntryID: lastLoanID})
	require.NoError(t, err)

	resp, err := f.ledger.RequestLoan(context.Background(), models.LoanRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("50"),
	})
	require.ErrorIs(t, err, domain.ErrLoanLimitExceeded)
	assert.Equal(t, "LOAN_LIMIT_EXCEEDED", resp.Code)
}

func TestTransferMovesBothLegs(t *testing.T) {
	f := newFixture()
	sender := f.openAccount(t, "cust-1", "300")
	receiver := f.openAccount(t, "cust-2", "50")

	resp, err := f.ledger.Transfer(context.Background(), models.TransferRequest{
		SenderAccountID:       sender.ID,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.RequireFromString("120"),
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	assert.True(t, resp.Data.SenderBalance.Equal(decimal.RequireFromString("180")))
	assert.True(t, resp.Data.ReceiverBalance.Equal(decimal.RequireFromString("170")))
	assert.Equal(t, resp.Data.OutEntry.Reference, resp.Data.InEntry.Reference)
	assert.Equal(t, 2, f.notifier.count(), "both parties get notified")
}

func TestTransferRejectsSameAccount(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "300")

	resp, err := f.ledger.Transfer(context.Background(), models.TransferRequest{
		SenderAccountID:       account.ID,
		ReceiverAccountNumber: account.AccountNumber,
		Amount:                decimal.RequireFromString("10"),
	})
	require.ErrorIs(t, err, domain.ErrSameAccount)
	assert.Equal(t, "SAME_ACCOUNT", resp.Code)

	stored, err := f.store.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("300")))
}

func TestTransferLeavesBalancesOnFailure(t *testing.T) {
	f := newFixture()
	sender := f.openAccount(t, "cust-1", "100")
	receiver := f.openAccount(t, "cust-2", "0")

	resp, err := f.ledger.Transfer(context.Background(), models.TransferRequest{
		SenderAccountID:       sender.ID,
		ReceiverAccountNumber: receiver.AccountNumber,
		Amount:                decimal.RequireFromString("100.01"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.False(t, resp.Success)

	senderStored, err := f.store.GetByID(context.Background(), sender.ID)
	require.NoError(t, err)
	receiverStored, err := f.store.GetByID(context.Background(), receiver.ID)
	require.NoError(t, err)
	assert.True(t, senderStored.Balance.Equal(decimal.RequireFromString("100")))
	assert.True(t, receiverStored.Balance.Equal(decimal.Zero))
	assert.Equal(t, 0, f.notifier.count())
}

func TestTransferUnknownReceiver(t *testing.T) {
	f := newFixture()
	sender := f.openAccount(t, "cust-1", "100")

	resp, err := f.ledger.Transfer(context.Background(), models.TransferRequest{
		SenderAccountID:       sender.ID,
		ReceiverAccountNumber: 7777777,
		Amount:                decimal.RequireFromString("10"),
	})
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", resp.Code)
}

func TestBankruptAccountRejectsPostings(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "100")

	_, err := f.accounts.MarkBankrupt(context.Background(), account.ID)
	require.NoError(t, err)

	resp, err := f.ledger.Deposit(context.Background(), models.DepositRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("10"),
	})
	require.ErrorIs(t, err, domain.ErrAccountBankrupt)
	assert.Equal(t, "ACCOUNT_BANKRUPT", resp.Code)
}

func TestNotificationFailureDoesNotFailPosting(t *testing.T) {
	f := newFixture()
	f.notifier.fail = errors.New("stream unavailable")
	account := f.openAccount(t, "cust-1", "")

	resp, err := f.ledger.Deposit(context.Background(), models.DepositRequest{
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("25"),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Data.Balance.Equal(decimal.RequireFromString("25")))
}

func TestBalanceMatchesEntryEffects(t *testing.T) {
	f := newFixture()
	account := f.openAccount(t, "cust-1", "")
	ctx := context.Background()

	_, err := f.ledger.Deposit(ctx, models.DepositRequest{AccountID: account.ID, Amount: decimal.RequireFromString("400")})
	require.NoError(t, err)
	_, err = f.ledger.Withdraw(ctx, models.WithdrawRequest{AccountID: account.ID, Amount: decimal.RequireFromString("120")})
	require.NoError(t, err)
	loan, err := f.ledger.RequestLoan(ctx, models.LoanRequest{AccountID: account.ID, Amount: decimal.RequireFromString("90")})
	require.NoError(t, err)
	_, err = f.ledger.RepayLoan(ctx, models.RepayLoanRequest{EntryID: loan.Data.Entry.ID})
	require.NoError(t, err)

	entries, err := f.store.ListEntries(ctx, account.ID, nil, nil)
	require.NoError(t, err)

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.BalanceEffect())
	}

	stored, err := f.store.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(total), "balance must equal the sum of entry effects, got %s vs %s", stored.Balance, total)
}
