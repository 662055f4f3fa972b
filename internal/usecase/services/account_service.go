package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
	"github.com/api-sage/retail-banking-ledger/internal/models"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/service_interfaces"
)

var _ service_interfaces.AccountService = (*AccountService)(nil)

type AccountService struct {
	accountRepo repo_interfaces.AccountRepository
	ledgerRepo  repo_interfaces.LedgerRepository
}

func NewAccountService(accountRepo repo_interfaces.AccountRepository, ledgerRepo repo_interfaces.LedgerRepository) *AccountService {
	return &AccountService{accountRepo: accountRepo, ledgerRepo: ledgerRepo}
}

func (s *AccountService) OpenAccount(ctx context.Context, req models.OpenAccountRequest) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service open request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.AccountResponse]("validation failed", err, err.Error()), err
	}

	account, err := s.accountRepo.Create(ctx, domain.Account{
		OwnerID: strings.TrimSpace(req.OwnerID),
		Kind:    domain.AccountKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		Balance: decimal.Zero,
	})
	if err != nil {
		logger.Error("account service create failed", err, nil)
		return commons.ErrorResponse[models.AccountResponse]("failed to open account", err, err.Error()), err
	}

	if req.InitialDeposit != nil && req.InitialDeposit.GreaterThan(decimal.Zero) {
		entry, err := s.ledgerRepo.Deposit(ctx, account.ID, req.InitialDeposit.Round(2), commons.NewReference())
		if err != nil {
			logger.Error("account service opening deposit failed", err, logger.Fields{
				"accountId": account.ID,
			})
			return commons.ErrorResponse[models.AccountResponse]("failed to post opening deposit", err, err.Error()), err
		}
		account.Balance = entry.BalanceAfter
	}

	return commons.SuccessResponse("account opened", models.MapAccount(account)), nil
}

func (s *AccountService) FindByAccountNumber(ctx context.Context, accountNumber int64) (commons.Response[models.AccountResponse], error) {
	account, err := s.accountRepo.GetByAccountNumber(ctx, accountNumber)
	if err != nil {
		return commons.ErrorResponse[models.AccountResponse]("failed to find account", err, err.Error()), err
	}
	return commons.SuccessResponse("account found", models.MapAccount(account)), nil
}

func (s *AccountService) MarkBankrupt(ctx context.Context, accountID int64) (commons.Response[models.AccountResponse], error) {
	logger.Info("account service mark bankrupt request", logger.Fields{
		"accountId": accountID,
	})

	if err := s.accountRepo.MarkBankrupt(ctx, accountID); err != nil {
		logger.Error("account service mark bankrupt failed", err, logger.Fields{
			"accountId": accountID,
		})
		return commons.ErrorResponse[models.AccountResponse]("failed to mark account bankrupt", err, err.Error()), err
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return commons.ErrorResponse[models.AccountResponse]("failed to load account", err, err.Error()), err
	}

	return commons.SuccessResponse("account marked bankrupt", models.MapAccount(account)), nil
}
