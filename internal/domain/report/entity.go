package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecobin/ecobin-api/internal/domain/bin"
)

// Period bounds a report. Zero values mean unbounded.
type Period struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// StatusCount is one row of a GROUP BY status.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// BinActivity counts submissions matched to one bin.
type BinActivity struct {
	BinID       uuid.UUID `db:"bin_id" json:"bin_id"`
	Name        string    `db:"name" json:"name"`
	Submissions int       `db:"submissions" json:"submissions"`
}

// CouncilReport is what the council dashboard shows.
type CouncilReport struct {
	Period             Period             `json:"period"`
	Submissions        []StatusCount      `json:"submissions"`
	TotalSubmissions   int                `json:"total_submissions"`
	PointsAwarded      int64              `json:"points_awarded"`
	UniqueContributors int                `json:"unique_contributors"`
	TopBins            []BinActivity      `json:"top_bins"`
	Coverage           *bin.CoverageStats `json:"coverage"`
}

// CashoutSummary aggregates cashouts in one status.
type CashoutSummary struct {
	Status string          `db:"status" json:"status"`
	Count  int             `db:"count" json:"count"`
	Points int64           `db:"points" json:"points"`
	Cash   decimal.Decimal `db:"cash" json:"cash"`
}

// FinanceReport is what the finance dashboard shows.
type FinanceReport struct {
	Period              Period           `json:"period"`
	Cashouts            []CashoutSummary `json:"cashouts"`
	PaidOut             decimal.Decimal  `json:"paid_out"`
	OutstandingLocked   decimal.Decimal  `json:"outstanding_locked"`
	PointsInCirculation int64            `json:"points_in_circulation"`
}
