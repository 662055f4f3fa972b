package services

import (
	"context"

	"github.com/api-sage/retail-banking-ledger/internal/adapter/repository/repo_interfaces"
)

// LoanPolicy caps the number of loans an account can take over its
// lifetime. Repaid loans still count toward the cap.
type LoanPolicy struct {
	ledgerRepo repo_interfaces.LedgerRepository
	maxLoans   int
}

func NewLoanPolicy(ledgerRepo repo_interfaces.LedgerRepository, maxLoans int) *LoanPolicy {
	return &LoanPolicy{ledgerRepo: ledgerRepo, maxLoans: maxLoans}
}

func (p *LoanPolicy) CheckEligible(ctx context.Context, accountID int64) (bool, error) {
	count, err := p.ledgerRepo.CountApprovedLoans(ctx, accountID)
	if err != nil {
		return false, err
	}
	return count < p.maxLoans, nil
}
