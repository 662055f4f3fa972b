package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
)

type AccountRepository struct {
	db         *sql.DB
	baseNumber int64
}

// NewAccountRepository wires the account directory. baseNumber is the
// offset added to the row id to form the customer-facing account number.
func NewAccountRepository(db *sql.DB, baseNumber int64) *AccountRepository {
	return &AccountRepository{db: db, baseNumber: baseNumber}
}

func (r *AccountRepository) Create(ctx context.Context, account domain.Account) (domain.Account, error) {
	logger.Info("account repository create", logger.Fields{
		"ownerId": account.OwnerID,
		"kind":    account.Kind,
	})

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("begin create account: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertQuery = `
INSERT INTO accounts (owner_id, kind, balance)
VALUES ($1, $2, $3)
RETURNING id, opened_at, updated_at`

	if err = tx.QueryRowContext(
		ctx,
		insertQuery,
		account.OwnerID,
		account.Kind,
		account.Balance,
	).Scan(&account.ID, &account.OpenedAt, &account.UpdatedAt); err != nil {
		err = fmt.Errorf("create account: %w", err)
		return domain.Account{}, err
	}

	// The account number is derived from the row id inside the same
	// transaction, so numbering stays deterministic under concurrency.
	const numberQuery = `
UPDATE accounts
SET account_number = $2 + id
WHERE id = $1
RETURNING account_number`

	if err = tx.QueryRowContext(ctx, numberQuery, account.ID, r.baseNumber).Scan(&account.AccountNumber); err != nil {
		err = fmt.Errorf("assign account number: %w", err)
		return domain.Account{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, fmt.Errorf("commit create account: %w", err)
	}

	logger.Info("account repository create success", logger.Fields{
		"accountId":     account.ID,
		"accountNumber": account.AccountNumber,
	})

	return account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber int64) (domain.Account, error) {
	return r.get(ctx, `WHERE account_number = $1`, accountNumber)
}

func (r *AccountRepository) get(ctx context.Context, where string, arg any) (domain.Account, error) {
	query := `
SELECT id, owner_id, account_number, kind, balance, is_bankrupt, opened_at, updated_at
FROM accounts ` + where

	var (
		account       domain.Account
		accountNumber sql.NullInt64
	)

	if err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.OwnerID,
		&accountNumber,
		&account.Kind,
		&account.Balance,
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

	return account, nil
}

func (r *AccountRepository) MarkBankrupt(ctx context.Context, id int64) error {
	const query = `
UPDATE accounts
SET is_bankrupt = TRUE,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
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

	logger.Info("account repository marked bankrupt", logger.Fields{
		"accountId": id,
	})

	return nil
}
