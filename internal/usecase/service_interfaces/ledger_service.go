package service_interfaces

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/models"
)

type LedgerService interface {
	Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.TransactionResponse], error)
	Withdraw(ctx context.Context, req models.WithdrawRequest) (commons.Response[models.TransactionResponse], error)
	RequestLoan(ctx context.Context, req models.LoanRequest) (commons.Response[models.TransactionResponse], error)
	RepayLoan(ctx context.Context, req models.RepayLoanRequest) (commons.Response[models.TransactionResponse], error)
	Transfer(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error)
}
