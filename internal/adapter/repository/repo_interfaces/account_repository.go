package repo_interfaces

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

// AccountRepository is the read-mostly account directory. Balance never
// changes through this interface; postings go through LedgerRepository.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) (domain.Account, error)
	GetByID(ctx context.Context, id int64) (domain.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber int64) (domain.Account, error)
	MarkBankrupt(ctx context.Context, id int64) error
}
