package service_interfaces

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/models"
)

type ReportService interface {
	Statement(ctx context.Context, req models.StatementRequest) (commons.Response[models.StatementResponse], error)
	Loans(ctx context.Context, accountID int64) (commons.Response[models.LoanListResponse], error)
}
