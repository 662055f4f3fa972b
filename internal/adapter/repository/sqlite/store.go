// Package sqlite backs the ledger with a single-file database. It keeps
// the same posting contract as the postgres store and is used for local
// runs and integration tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	account_number INTEGER UNIQUE,
	kind TEXT NOT NULL,
	balance TEXT NOT NULL DEFAULT '0',
	is_bankrupt INTEGER NOT NULL DEFAULT 0,
	opened_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL REFERENCES accounts(id),
	reference TEXT NOT NULL,
	kind TEXT NOT NULL,
	amount TEXT NOT NULL,
	balance_after TEXT NOT NULL,
	loan_approved INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_account_created ON entries (account_id, created_at);
`

type Store struct {
	db *sql.DB

	// NowFunc stamps postings; tests override it to pin timestamps.
	NowFunc func() time.Time
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// Writes are serialized through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &Store{
		db:      db,
		NowFunc: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	now := s.NowFunc()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin create account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var result sql.Result
	result, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (owner_id, kind, balance, is_bankrupt, opened_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		account.OwnerID, account.Kind, account.Balance.String(), now, now,
	)
	if err != nil {
		err = fmt.Errorf("create account: %w", err)
		return domain.Account{}, err
	}

	account.ID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("create account id: %w", err)
		return domain.Account{}, err
	}

	account.AccountNumber = baseAccountNumber + account.ID
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET account_number = ? WHERE id = ?`,
		account.AccountNumber, account.ID,
	); err != nil {
		err = fmt.Errorf("assign account number: %w", err)
		return domain.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit create account: %w", err)
	}

	account.OpenedAt = now
	account.UpdatedAt = now
	return account, nil
}

// baseAccountNumber mirrors the default offset used by the postgres
// directory; the sqlite store is for local runs so it is not configurable.
const baseAccountNumber = 1000000

func (s *Store) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	return s.getAccount(ctx, `WHERE id = ?`, id)
}

func (s *Store) GetByAccountNumber(ctx context.Context, accountNumber int64) (domain.Account, error) {
	return s.getAccount(ctx, `WHERE account_number = ?`, accountNumber)
}

func (s *Store) getAccount(ctx context.Context, where string, arg any) (domain.Account, error) {
	query := `
		SELECT id, owner_id, account_number, kind, balance, is_bankrupt, opened_at, updated_at
		FROM accounts ` + where

	var (
		account       domain.Account
		accountNumber sql.NullInt64
		balance       string
	)
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.OwnerID,
		&accountNumber,
		&account.Kind,
		&balance,
		&account.IsBankrupt,
		&account.OpenedAt,
		&account.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	if accountNumber.Valid {
		account.AccountNumber = accountNumber.Int64
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("parse stored balance: %w", err)
	}
	account.Balance = parsed

	return account, nil
}

func (s *Store) MarkBankrupt(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET is_bankrupt = 1, updated_at = ? WHERE id = ?`,
		s.NowFunc(), id,
	)
	if err != nil {
		return fmt.Errorf("mark account bankrupt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark account bankrupt rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

func (s *Store) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	return s.post(ctx, domain.EntryKindDeposit, accountID, amount, reference, false, amount, false)
}

func (s *Store) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, reference string) (domain.Entry, error) {
	return s.post(ctx, domain.EntryKindWithdrawal, accountID, amount, reference, false, amount.Neg(), true)
}

func (s *Store) RecordLoan(ctx context.Context, accountID int64, amount decimal.Decimal, reference string, creditBalance bool) (domain.Entry, error) {
	effect := decimal.Zero
	if creditBalance {
		effect = amount
	}
	return s.post(ctx, domain.EntryKindLoan, accountID, amount, reference, true, effect, false)
}

func (s *Store) post(
	ctx context.Context,
	kind domain.EntryKind,
	accountID int64,
	amount decimal.Decimal,
	reference string,
	loanApproved bool,
	effect decimal.Decimal,
	requireCover bool,
) (domain.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("begin posting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	balance, err := txBalance(ctx, tx, accountID)
	if err != nil {
		return domain.Entry{}, err
	}

	if requireCover && balance.LessThan(amount) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, err
	}

	newBalance := balance.Add(effect)
	entry := domain.Entry{
		AccountID:    accountID,
		Reference:    reference,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: newBalance,
		LoanApproved: loanApproved,
		Timestamp:    s.NowFunc(),
	}

	if err = s.applyPosting(ctx, tx, &entry); err != nil {
		return domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, fmt.Errorf("commit posting transaction: %w", err)
	}

	return entry, nil
}

func (s *Store) applyPosting(ctx context.Context, tx *sql.Tx, entry *domain.Entry) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		entry.BalanceAfter.String(), entry.Timestamp, entry.AccountID,
	); err != nil {
		return fmt.Errorf("update balance for account %d: %w", entry.AccountID, err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO entries (account_id, reference, kind, amount, balance_after, loan_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.AccountID, entry.Reference, entry.Kind,
		entry.Amount.String(), entry.BalanceAfter.String(), entry.LoanApproved, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	entry.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert entry id: %w", err)
	}

	return nil
}

func (s *Store) RepayLoan(ctx context.Context, entryID int64) (domain.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("begin repay transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entry, err := txEntry(ctx, tx, entryID)
	if err != nil {
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

	balance, err := txBalance(ctx, tx, entry.AccountID)
	if err != nil {
		return domain.Entry{}, err
	}

	if entry.Amount.GreaterThanOrEqual(balance) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, err
	}

	newBalance := balance.Sub(entry.Amount)
	now := s.NowFunc()

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		newBalance.String(), now, entry.AccountID,
	); err != nil {
		err = fmt.Errorf("update balance for account %d: %w", entry.AccountID, err)
		return domain.Entry{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE entries SET kind = ?, balance_after = ? WHERE id = ?`,
		domain.EntryKindLoanRepaid, newBalance.String(), entry.ID,
	); err != nil {
		err = fmt.Errorf("transition loan entry: %w", err)
		return domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, fmt.Errorf("commit repay transaction: %w", err)
	}

	entry.Kind = domain.EntryKindLoanRepaid
	entry.BalanceAfter = newBalance
	return entry, nil
}

func (s *Store) Transfer(ctx context.Context, senderID, receiverID int64, amount decimal.Decimal, reference string) (domain.Entry, domain.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, fmt.Errorf("begin transfer transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	senderBalance, err := txBalance(ctx, tx, senderID)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}
	receiverBalance, err := txBalance(ctx, tx, receiverID)
	if err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	if senderBalance.LessThan(amount) {
		err = domain.ErrInsufficientFunds
		return domain.Entry{}, domain.Entry{}, err
	}

	now := s.NowFunc()
	outEntry := domain.Entry{
		AccountID:    senderID,
		Reference:    reference,
		Kind:         domain.EntryKindTransferOut,
		Amount:       amount,
		BalanceAfter: senderBalance.Sub(amount),
		Timestamp:    now,
	}
	inEntry := domain.Entry{
		AccountID:    receiverID,
		Reference:    reference,
		Kind:         domain.EntryKindTransferIn,
		Amount:       amount,
		BalanceAfter: receiverBalance.Add(amount),
		Timestamp:    now,
	}

	if err = s.applyPosting(ctx, tx, &outEntry); err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}
	if err = s.applyPosting(ctx, tx, &inEntry); err != nil {
		return domain.Entry{}, domain.Entry{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Entry{}, domain.Entry{}, fmt.Errorf("commit transfer transaction: %w", err)
	}

	return outEntry, inEntry, nil
}

func (s *Store) GetEntry(ctx context.Context, entryID int64) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
		FROM entries
		WHERE id = ?`, entryID)

	entry, err := scanEntry(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Entry{}, domain.ErrRecordNotFound
		}
		return domain.Entry{}, fmt.Errorf("get entry: %w", err)
	}

	return entry, nil
}

func (s *Store) CountApprovedLoans(ctx context.Context, accountID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM entries
		WHERE account_id = ? AND kind IN (?, ?) AND loan_approved = 1`,
		accountID, domain.EntryKindLoan, domain.EntryKindLoanRepaid,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved loans: %w", err)
	}

	return count, nil
}

func (s *Store) ListLoanEntries(ctx context.Context, accountID int64) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
		FROM entries
		WHERE account_id = ? AND kind IN (?, ?)
		ORDER BY created_at ASC, id ASC`,
		accountID, domain.EntryKindLoan, domain.EntryKindLoanRepaid,
	)
	if err != nil {
		return nil, fmt.Errorf("list loan entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func (s *Store) ListEntries(ctx context.Context, accountID int64, from, to *time.Time) ([]domain.Entry, error) {
	query := `
		SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
		FROM entries
		WHERE account_id = ?`
	args := []any{accountID}

	if from != nil {
		query += ` AND created_at >= ?`
		args = append(args, *from)
	}
	if to != nil {
		query += ` AND created_at < ?`
		args = append(args, *to)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func txBalance(ctx context.Context, tx *sql.Tx, accountID int64) (decimal.Decimal, error) {
	var raw string
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ?`, accountID,
	).Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, domain.ErrAccountNotFound
		}
		return decimal.Zero, fmt.Errorf("read balance for account %d: %w", accountID, err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored balance: %w", err)
	}

	return balance, nil
}

func txEntry(ctx context.Context, tx *sql.Tx, entryID int64) (domain.Entry, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, account_id, reference, kind, amount, balance_after, loan_approved, created_at
		FROM entries
		WHERE id = ?`, entryID)

	entry, err := scanEntry(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Entry{}, domain.ErrRecordNotFound
		}
		return domain.Entry{}, fmt.Errorf("get entry: %w", err)
	}

	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]domain.Entry, error) {
	var out []domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return out, nil
}

func scanEntry(scan func(...any) error) (domain.Entry, error) {
	var (
		entry   domain.Entry
		amount  string
		balance string
	)
	if err := scan(
		&entry.ID,
		&entry.AccountID,
		&entry.Reference,
		&entry.Kind,
		&amount,
		&balance,
		&entry.LoanApproved,
		&entry.Timestamp,
	); err != nil {
		return domain.Entry{}, err
	}

	parsedAmount, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("parse stored amount: %w", err)
	}
	parsedBalance, err := decimal.NewFromString(balance)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("parse stored balance_after: %w", err)
	}

	entry.Amount = parsedAmount
	entry.BalanceAfter = parsedBalance
	return entry, nil
}
