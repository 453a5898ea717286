package report

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ecobin/ecobin-api/internal/domain/bin"
)

var ErrInvalidPeriod = errors.New("from must be before to")

const topBinsLimit = 10

// CoverageSource is the bin registry's stats call.
type CoverageSource interface {
	CoverageStats(ctx context.Context) (*bin.CoverageStats, error)
}

type Service struct {
	repo Repository
	bins CoverageSource
}

func NewService(repo Repository, bins CoverageSource) *Service {
	return &Service{repo: repo, bins: bins}
}

func (s *Service) Council(ctx context.Context, p Period) (*CouncilReport, error) {
	if err := validatePeriod(p); err != nil {
		return nil, err
	}

	counts, err := s.repo.SubmissionsByStatus(ctx, p)
	if err != nil {
		return nil, err
	}
	points, contributors, err := s.repo.SubmissionTotals(ctx, p)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopBins(ctx, p, topBinsLimit)
	if err != nil {
		return nil, err
	}
	coverage, err := s.bins.CoverageStats(ctx)
	if err != nil {
		return nil, err
	}

	rep := &CouncilReport{
		Period:             p,
		Submissions:        counts,
		PointsAwarded:      points,
		UniqueContributors: contributors,
		TopBins:            top,
		Coverage:           coverage,
	}
	for _, c := range counts {
		rep.TotalSubmissions += c.Count
	}
	return rep, nil
}

// Finance reports cashout volume. PaidOut sums SUCCEEDED requests only.
func (s *Service) Finance(ctx context.Context, p Period) (*FinanceReport, error) {
	if err := validatePeriod(p); err != nil {
		return nil, err
	}

	summaries, err := s.repo.CashoutsByStatus(ctx, p)
	if err != nil {
		return nil, err
	}
	points, locked, err := s.repo.WalletTotals(ctx)
	if err != nil {
		return nil, err
	}

	rep := &FinanceReport{
		Period:              p,
		Cashouts:            summaries,
		PaidOut:             decimal.Zero,
		OutstandingLocked:   locked,
		PointsInCirculation: points,
	}
	for _, c := range summaries {
		if c.Status == "SUCCEEDED" {
			rep.PaidOut = rep.PaidOut.Add(c.Cash)
		}
	}
	return rep, nil
}

func validatePeriod(p Period) error {
	if !p.From.IsZero() && !p.To.IsZero() && !p.From.Before(p.To) {
		return ErrInvalidPeriod
	}
	return nil
}
