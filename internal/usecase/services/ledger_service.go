package services

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/retail-banking-ledger/internal/commons"
	"github.com/api-sage/retail-banking-ledger/internal/domain"
	"github.com/api-sage/retail-banking-ledger/internal/logger"
	"github.com/api-sage/retail-banking-ledger/internal/models"
	"github.com/api-sage/retail-banking-ledger/internal/notifier"
	"github.com/api-sage/retail-banking-ledger/internal/usecase/service_interfaces"
)

var _ service_interfaces.LedgerService = (*LedgerService)(nil)

// LedgerService is the only writer of account balances. Every operation
// runs as one atomic unit in the ledger repository; the notification
// collaborator is called after commit and can never fail an operation.
type LedgerService struct {
	ledgerRepo            repo_interfaces.LedgerRepository
	accountRepo           repo_interfaces.AccountRepository
	loanPolicy            *LoanPolicy
	notifier              notifier.Notifier
	loanCreditsOnApproval bool
}

func NewLedgerService(
	ledgerRepo repo_interfaces.LedgerRepository,
	accountRepo repo_interfaces.AccountRepository,
	loanPolicy *LoanPolicy,
	notify notifier.Notifier,
	loanCreditsOnApproval bool,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:            ledgerRepo,
		accountRepo:           accountRepo,
		loanPolicy:            loanPolicy,
		notifier:              notify,
		loanCreditsOnApproval: loanCreditsOnApproval,
	}
}

func (s *LedgerService) Deposit(ctx context.Context, req models.DepositRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service deposit request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err, err.Error()), err
	}

	account, err := s.mutableAccount(ctx, req.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to deposit funds", err, err.Error()), err
	}

	amount := req.Amount.Round(2)
	entry, err := s.ledgerRepo.Deposit(ctx, account.ID, amount, commons.NewReference())
	if err != nil {
		logger.Error("ledger service deposit posting failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to deposit funds", err, err.Error()), err
	}

	s.notify(ctx, account.OwnerID, "Deposit Confirmation", notifier.TemplateDeposit, logger.Fields{
		"amount":       amount,
		"balanceAfter": entry.BalanceAfter,
		"reference":    entry.Reference,
	})

	return commons.SuccessResponse("deposit successful", models.TransactionResponse{
		Entry:   models.MapEntry(entry),
		Balance: entry.BalanceAfter,
	}), nil
}

func (s *LedgerService) Withdraw(ctx context.Context, req models.WithdrawRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service withdraw request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err, err.Error()), err
	}

	account, err := s.mutableAccount(ctx, req.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to withdraw funds", err, err.Error()), err
	}

	amount := req.Amount.Round(2)
	if account.Balance.LessThan(amount) {
		err := domain.ErrInsufficientFunds
		return commons.ErrorResponse[models.TransactionResponse]("failed to withdraw funds", err, err.Error()), err
	}

	entry, err := s.ledgerRepo.Withdraw(ctx, account.ID, amount, commons.NewReference())
	if err != nil {
		logger.Error("ledger service withdraw posting failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to withdraw funds", err, err.Error()), err
	}

	s.notify(ctx, account.OwnerID, "Withdrawal Confirmation", notifier.TemplateWithdrawal, logger.Fields{
		"amount":       amount,
		"balanceAfter": entry.BalanceAfter,
		"reference":    entry.Reference,
	})

	return commons.SuccessResponse("withdrawal successful", models.TransactionResponse{
		Entry:   models.MapEntry(entry),
		Balance: entry.BalanceAfter,
	}), nil
}

func (s *LedgerService) RequestLoan(ctx context.Context, req models.LoanRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service loan request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err, err.Error()), err
	}

	account, err := s.mutableAccount(ctx, req.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to request loan", err, err.Error()), err
	}

	eligible, err := s.loanPolicy.CheckEligible(ctx, account.ID)
	if err != nil {
		logger.Error("ledger service loan eligibility check failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to request loan", err, err.Error()), err
	}
	if !eligible {
		err := domain.ErrLoanLimitExceeded
		return commons.ErrorResponse[models.TransactionResponse]("failed to request loan", err, err.Error()), err
	}

	amount := req.Amount.Round(2)
	entry, err := s.ledgerRepo.RecordLoan(ctx, account.ID, amount, commons.NewReference(), s.loanCreditsOnApproval)
	if err != nil {
		logger.Error("ledger service loan posting failed", err, logger.Fields{
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to request loan", err, err.Error()), err
	}

	s.notify(ctx, account.OwnerID, "Loan Approved", notifier.TemplateLoanApproved, logger.Fields{
		"amount":    amount,
		"reference": entry.Reference,
	})

	return commons.SuccessResponse("loan approved", models.TransactionResponse{
		Entry:   models.MapEntry(entry),
		Balance: entry.BalanceAfter,
	}), nil
}

func (s *LedgerService) RepayLoan(ctx context.Context, req models.RepayLoanRequest) (commons.Response[models.TransactionResponse], error) {
	logger.Info("ledger service repay loan request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("validation failed", err, err.Error()), err
	}

	loan, err := s.ledgerRepo.GetEntry(ctx, req.EntryID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to repay loan", err, err.Error()), err
	}

	account, err := s.mutableAccount(ctx, loan.AccountID)
	if err != nil {
		return commons.ErrorResponse[models.TransactionResponse]("failed to repay loan", err, err.Error()), err
	}

	entry, err := s.ledgerRepo.RepayLoan(ctx, req.EntryID)
	if err != nil {
		logger.Error("ledger service repay posting failed", err, logger.Fields{
			"entryId":   req.EntryID,
			"accountId": account.ID,
		})
		return commons.ErrorResponse[models.TransactionResponse]("failed to repay loan", err, err.Error()), err
	}

	s.notify(ctx, account.OwnerID, "Loan Repaid", notifier.TemplateLoanRepaid, logger.Fields{
		"amount":       entry.Amount,
		"balanceAfter": entry.BalanceAfter,
		"reference":    entry.Reference,
	})

	return commons.SuccessResponse("loan repaid", models.TransactionResponse{
		Entry:   models.MapEntry(entry),
		Balance: entry.BalanceAfter,
	}), nil
}

func (s *LedgerService) Transfer(ctx context.Context, req models.TransferRequest) (commons.Response[models.TransferResponse], error) {
	logger.Info("ledger service transfer request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.TransferResponse]("validation failed", err, err.Error()), err
	}

	sender, err := s.mutableAccount(ctx, req.SenderAccountID)
	if err != nil {
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}

	receiver, err := s.accountRepo.GetByAccountNumber(ctx, req.ReceiverAccountNumber)
	if err != nil {
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}

	if receiver.ID == sender.ID {
		err := domain.ErrSameAccount
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}
	if receiver.IsBankrupt {
		err := domain.ErrAccountBankrupt
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}

	amount := req.Amount.Round(2)
	if sender.Balance.LessThan(amount) {
		err := domain.ErrInsufficientFunds
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}

	reference := commons.NewReference()
	outEntry, inEntry, err := s.ledgerRepo.Transfer(ctx, sender.ID, receiver.ID, amount, reference)
	if err != nil {
		logger.Error("ledger service transfer posting failed", err, logger.Fields{
			"senderId":   sender.ID,
			"receiverId": receiver.ID,
			"reference":  reference,
		})
		return commons.ErrorResponse[models.TransferResponse]("failed to process transfer", err, err.Error()), err
	}

	s.notify(ctx, sender.OwnerID, "Transfer Sent", notifier.TemplateTransferSent, logger.Fields{
		"amount":        amount,
		"receiverAccno": receiver.AccountNumber,
		"balanceAfter":  outEntry.BalanceAfter,
		"reference":     reference,
	})
	s.notify(ctx, receiver.OwnerID, "Money Received", notifier.TemplateTransferReceived, logger.Fields{
		"amount":       amount,
		"senderAccno":  sender.AccountNumber,
		"balanceAfter": inEntry.BalanceAfter,
		"reference":    reference,
	})

	return commons.SuccessResponse("transfer successful", models.TransferResponse{
		Reference:       reference,
		OutEntry:        models.MapEntry(outEntry),
		InEntry:         models.MapEntry(inEntry),
		SenderBalance:   outEntry.BalanceAfter,
		ReceiverBalance: inEntry.BalanceAfter,
	}), nil
}

// mutableAccount loads an account and rejects postings against bankrupt
// accounts.
func (s *LedgerService) mutableAccount(ctx context.Context, accountID int64) (domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if account.IsBankrupt {
		return domain.Account{}, domain.ErrAccountBankrupt
	}
	return account, nil
}

func (s *LedgerService) notify(ctx context.Context, ownerID, subject, templateKey string, payload map[string]any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ownerID, subject, templateKey, payload); err != nil {
		logger.Warn("ledger service notification dispatch failed", logger.Fields{
			"ownerId":  ownerID,
			"template": templateKey,
			"error":    err.Error(),
		})
	}
}
