package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
	"github.com/api-sage/retail-banking-ledger/internal/models"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/service_interfaces"
)

var _ service_interfaces.ReportService = (*ReportService)(nil)

// ReportService answers read-only queries over the ledger. It never
// mutates balances, so running the same statement twice yields the
// same result.
type ReportService struct {
	ledgerRepo  repo_interfaces.LedgerRepository
	accountRepo repo_interfaces.AccountRepository
}

func NewReportService(ledgerRepo repo_interfaces.LedgerRepository, accountRepo repo_interfaces.AccountRepository) *ReportService {
	return &ReportService{ledgerRepo: ledgerRepo, accountRepo: accountRepo}
}

func (s *ReportService) Statement(ctx context.Context, req models.StatementRequest) (commons.Response[models.StatementResponse], error) {
	logger.Info("report service statement request", logger.Fields{
		"accountId": req.AccountID,
		"startDate": req.StartDate,
		"endDate":   req.EndDate,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.StatementResponse]("validation failed", err, err.Error()), err
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.StatementResponse]("failed to build statement", err, err.Error()), err
	}

	from, to, err := req.Range()
	if err != nil {
		return commons.ErrorResponse[models.StatementResponse]("validation failed", err, err.Error()), err
	}

	entries, err := s.ledgerRepo.ListEntries(ctx, account.ID, from, to)
	if err != nil {
		logger.Error("report service statement query failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.StatementResponse]("failed to build statement", err, err.Error()), err
	}

	seen := make(map[int64]struct{}, len(entries))
	responses := make([]models.EntryResponse, 0, len(entries))
	periodTotal := decimal.Zero
	for _, entry := range entries {
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		responses = append(responses, models.MapEntry(entry))
		// Window totals are turnover: amounts are stored positive and
		// summed as-is, regardless of direction.
		periodTotal = periodTotal.Add(entry.Amount)
	}

	// An unranged statement covers the whole history, so its total is
	// the current balance rather than a turnover sum.
	if from == nil {
		periodTotal = account.Balance
	}

	return commons.SuccessResponse("statement generated", models.StatementResponse{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		Entries:       responses,
		PeriodTotal:   periodTotal,
	}), nil
}

func (s *ReportService) Loans(ctx context.Context, accountID int64) (commons.Response[models.LoanListResponse], error) {
	logger.Info("report service loans request", logger.Fields{
		"accountId": accountID,
	})

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return commons.ErrorResponse[models.LoanListResponse]("failed to list loans", err, err.Error()), err
	}

	entries, err := s.ledgerRepo.ListLoanEntries(ctx, account.ID)
	if err != nil {
		logger.Error("report service loan query failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.LoanListResponse]("failed to list loans", err, err.Error()), err
	}

	loans := make([]models.EntryResponse, 0, len(entries))
	for _, entry := range entries {
		loans = append(loans, models.MapEntry(entry))
	}

	return commons.SuccessResponse("loans listed", models.LoanListResponse{
		AccountID: account.ID,
		Loans:     loans,
	}), nil
}
