package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
)

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	return r.post(ctx, domain.EntryKindDeposit, accountID, amount, reference, false, amount, false)
}

func (r *LedgerRepository) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	return r.post(ctx, domain.EntryKindWithdrawal, accountID, amount, reference, false, amount.Neg(), true)
}

func (r *LedgerRepository) RecordLoan(ctx context.Context, accountID int64, amount decimal.Decimal, reference string, creditBalance bool) (domain.Entry, error) {
	effect := decimal.Zero
	if creditBalance {
		effect = amount
	}
	return r.post(ctx, domain.EntryKindLoan, accountID, amount, reference, true, effect, false)
}

// post applies one balance-affecting event: it locks the account row,
// applies the signed effect, and writes the entry, all in one
// transaction. requireCover rejects the posting when the amount exceeds
// the locked balance.
func (r *LedgerRepository) post(
	ctx context.Context,
	kind domain.EntryKind,
	accountID int64,
	amount decimal.Decimal,
	reference string,
	loanApproved bool,
	effect decimal.Decimal,
	requireCover bool,
) (domain.Entry, error) {
	logger.Info("ledger repository post", logger.Fields{
		"accountId": accountID,
		"kind":      kind,
		"amount":    amount,
		"reference": reference,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("begin posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	balance, err := lockBalance(ctx, tx, accountID)
	if err != nil {
		return domain.Entry{}, err
	}

	if requireCover && balance.LessThan(amount) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, err
	}

	newBalance := balance.Add(effect)
	if err = setBalance(ctx, tx, accountID, newBalance); err != nil {
		return domain.Entry{}, err
	}

	entry := domain.Entry{
		AccountID:    accountID,
		Reference:    reference,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: newBalance,
		LoanApproved: loanApproved,
	}
	entry, err = insertEntry(ctx, tx, entry)
	if err != nil {
		return domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, fmt.Errorf("commit posting transaction: %w", err)
	}

	logger.Info("ledger repository post success", logger.Fields{
		"entryId":      entry.ID,
		"accountId":    accountID,
		"kind":         kind,
		"balanceAfter": entry.BalanceAfter,
	})

	return entry, nil
}

func (r *LedgerRepository) RepayLoan(ctx context.Context, entryID int64) (domain.Entry, error) {
	logger.Info("ledger repository repay loan", logger.Fields{
		"entryId": entryID,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("begin repay transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const entryQuery = `
SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
FROM entries
WHERE id = $1
FOR UPDATE`

	var entry domain.Entry
	if err = tx.QueryRowContext(ctx, entryQuery, entryID).Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Reference,
		&entry.Kind,
		&entry.Amount,
		&entry.BalanceAfter,
		&entry.LoanApproved,
		&entry.Timestamp,
	); err != nil {
		if err == sql.ErrNoRows {
			err = domain.ErrRecordNotFound
		} else {
			err = fmt.Errorf("get loan entry: %w", err)
		}
		return domain.Entry{}, err
	}

	if entry.Kind != domain.EntryKindLoan {
		err = domain.ErrRecordNotFound
		return domain.Entry{}, err
	}
	if !entry.LoanApproved {
		err = domain.ErrLoanNotApproved
		return domain.Entry{}, err
	}

	balance, err := lockBalance(ctx, tx, entry.AccountID)
	if err != nil {
		return domain.Entry{}, err
	}

	// The loan amount must be strictly less than the current balance.
	if entry.Amount.GreaterThanOrEqual(balance) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, err
	}

	newBalance := balance.Sub(entry.Amount)
	if err = setBalance(ctx, tx, entry.AccountID, newBalance); err != nil {
		return domain.Entry{}, err
	}

	const transitionQuery = `
UPDATE entries
SET kind = $2,
    balance_after = $3
WHERE id = $1`

	if _, err = tx.ExecContext(ctx, transitionQuery, entry.ID, domain.EntryKindLoanRepaid, newBalance); err != nil {
		err = fmt.Errorf("transition loan entry: %w", err)
		return domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, fmt.Errorf("commit repay transaction: %w", err)
	}

	entry.Kind = domain.EntryKindLoanRepaid
	entry.BalanceAfter = newBalance

	logger.Info("ledger repository repay loan success", logger.Fields{
		"entryId":      entry.ID,
		"accountId":    entry.AccountID,
		"balanceAfter": entry.BalanceAfter,
	})

	return entry, nil
}

func (r *LedgerRepository) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal, reference string) (domain.Entry, domain.Entry, error) {
	logger.Info("ledger repository transfer", logger.Fields{
		"senderId":   senderID,
		"receiverId": receiverID,
		"amount":     amount,
		"reference":  reference,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Lock both rows in ascending id order so concurrent cross-transfers
	// between the same pair cannot deadlock.
	first, second := senderID, receiverID
	if receiverID < senderID {
		first, second = receiverID, senderID
	}

	balances := make(map[int64]decimal.Decimal, 2)
	for _, id := range []int64{first, second} {
		var balance decimal.Decimal
		balance, err = lockBalance(ctx, tx, id)
		if err != nil {
			return domain.Entry{}, domain.Entry{}, err
		}
		balances[id] = balance
	}

	if balances[senderID].LessThan(amount) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, domain.Entry{}, err
	}

	senderBalance := balances[senderID].Sub(amount)
	receiverBalance := balances[receiverID].Add(amount)

	if err = setBalance(ctx, tx, senderID, senderBalance); err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}
	if err = setBalance(ctx, tx, receiverID, receiverBalance); err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	outEntry := domain.Entry{
		AccountID:    senderID,
		Reference:    reference,
		Kind:         domain.EntryKindTransferOut,
		Amount:       amount,
		BalanceAfter: senderBalance,
	}
	outEntry, err = insertEntry(ctx, tx, outEntry)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	inEntry := domain.Entry{
		AccountID:    receiverID,
		Reference:    reference,
		Kind:         domain.EntryKindTransferIn,
		Amount:       amount,
		BalanceAfter: receiverBalance,
	}
	inEntry, err = insertEntry(ctx, tx, inEntry)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, domain.Entry{}, fmt.Errorf("commit transfer transaction: %w", err)
	}

	logger.Info("ledger repository transfer success", logger.Fields{
		"reference":  reference,
		"outEntryId": outEntry.ID,
		"inEntryId":  inEntry.ID,
	})

	return outEntry, inEntry, nil
}

func (r *LedgerRepository) GetEntry(ctx context.Context, entryID int64) (domain.Entry, error) {
	const query = `
SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
FROM entries
WHERE id = $1`

	var entry domain.Entry
	if err := r.db.QueryRowContext(ctx, query, entryID).Scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Reference,
		&entry.Kind,
		&entry.Amount,
		&entry.BalanceAfter,
		&entry.LoanApproved,
		&entry.Timestamp,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Entry{}, domain.ErrRecordNotFound
		}
		return domain.Entry{}, fmt.Errorf("get entry: %w", err)
	}

	return entry, nil
}

func (r *LedgerRepository) CountApprovedLoans(ctx context.Context, accountID int64) (int, error) {
	const query = `
SELECT COUNT(1)
FROM entries
WHERE account_id = $1
  AND kind IN ($2, $3)
  AND loan_approved`

	var count int
	if err := r.db.QueryRowContext(ctx, query, accountID, domain.EntryKindLoan, domain.EntryKindLoanRepaid).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved loans: %w", err)
	}

	return count, nil
}

func (r *LedgerRepository) ListLoanEntries(ctx context.Context, accountID int64) ([]domain.Entry, error) {
	const query = `
SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
FROM entries
WHERE account_id = $1
  AND kind IN ($2, $3)
ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, accountID, domain.EntryKindLoan, domain.EntryKindLoanRepaid)
	if err != nil {
		return nil, fmt.Errorf("list loan entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *LedgerRepository) ListEntries(ctx context.Context, accountID int64, from, to *time.Time) ([]domain.Entry, error) {
	query := `
SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
FROM entries
WHERE account_id = $1`
	args := []any{accountID}

	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var out []domain.Entry
	for rows.Next() {
		var entry domain.Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.Reference,
			&entry.Kind,
			&entry.Amount,
			&entry.BalanceAfter,
			&entry.LoanApproved,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}

func lockBalance(ctx context.Context, tx *sql.Tx, accountID int64) (decimal.Decimal, error) {
	const query = `
SELECT balance
FROM accounts
WHERE id = $1
FOR UPDATE`

	var balance decimal.Decimal
	if err := tx.QueryRowContext(ctx, query, accountID).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("lock account %d: %w", accountID, err)
	}

	return balance, nil
}

func setBalance(ctx context.Context, tx *sql.Tx, accountID int64, balance decimal.Decimal) error {
	const query = `
UPDATE accounts
SET balance = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, accountID, balance)
	if err != nil {
		return fmt.Errorf("update balance for account %d: %w", accountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry domain.Entry) (domain.Entry, error) {
	const query = `
INSERT INTO entries (account_id, reference, kind, amount, balance_after, loan_approved)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`

	if err := tx.QueryRowContext(
		ctx,
		query,
		entry.AccountID,
		entry.Reference,
		entry.Kind,
		entry.Amount,
		entry.BalanceAfter,
		entry.LoanApproved,
	).Scan(&entry.ID, &entry.Timestamp); err != nil {
		return domain.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return entry, nil
}
