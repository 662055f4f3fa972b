package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/api-sage/retail-banking-ledger/internal/domain"
)

const dateLayout = "2006-01-02"

// StatementRequest filters an account's ledger history. StartDate and
// EndDate are inclusive ISO calendar dates; both must be given or both
// left empty.
type StatementRequest struct {
	AccountID int64  `json:"accountId"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func (r StatementRequest) Validate() error {
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: accountId is required", domain.ErrValidation)
	}

	hasStart := strings.TrimSpace(r.StartDate) != ""
	hasEnd := strings.TrimSpace(r.EndDate) != ""
	if hasStart != hasEnd {
		return fmt.Errorf("%w: startDate and endDate must be provided together", domain.ErrValidation)
	}
	if !hasStart {
		return nil
	}

	start, err := r.parseDate(r.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate %s", domain.ErrValidation, err)
	}
	end, err := r.parseDate(r.EndDate)
	if err != nil {
		return fmt.Errorf("%w: endDate %s", domain.ErrValidation, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: endDate must not be before startDate", domain.ErrValidation)
	}
	return nil
}

// Range converts the calendar dates to a half-open UTC time window
// [start, end+1d). Returns nils when the request is unranged.
func (r StatementRequest) Range() (*time.Time, *time.Time, error) {
	if strings.TrimSpace(r.StartDate) == "" {
		return nil, nil, nil
	}

	start, err := r.parseDate(r.StartDate)
	if err != nil {
		return nil, nil, fmt.Errorf("startDate: %w", err)
	}
	end, err := r.parseDate(r.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("endDate: %w", err)
	}

	endExclusive := end.AddDate(0, 0, 1)
	return &start, &endExclusive, nil
}

func (r StatementRequest) parseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be a calendar date in %s form", dateLayout)
	}
	return parsed, nil
}

type StatementResponse struct {
	AccountID     int64           `json:"accountId"`
	AccountNumber int64           `json:"accountNumber"`
	Entries       []EntryResponse `json:"entries"`
	PeriodTotal   decimal.Decimal `json:"periodTotal"`
}

type LoanListResponse struct {
	AccountID int64           `json:"accountId"`
	Loans     []EntryResponse `json:"loans"`
}
