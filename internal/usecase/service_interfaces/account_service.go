package service_interfaces

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/models"
)

type AccountService interface {
	OpenAccount(ctx context.Context, req models.OpenAccountRequest) (commons.Response[models.AccountResponse], error)
	FindByAccountNumber(ctx context.Context, accountNumber int64) (commons.Response[models.AccountResponse], error)
	MarkBankrupt(ctx context.Context, accountID int64) (commons.Response[models.AccountResponse], error)
}
