package stockdata

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/scoring"
)

// Sector analysis limits
const (
	DefaultSectorLimit = 20
	MaxSectorLimit     = 50
	sectorConcurrency  = 4
	topPickScore       = 60
	topPickCount       = 5
)

// StockAnalysis is the integrated view of one symbol with its scores
type StockAnalysis struct {
	Record     *contracts.SymbolRecord `json:"record"`
	Quote      *contracts.Quote        `json:"quote,omitempty"`
	Valuation  *contracts.Valuation    `json:"valuation,omitempty"`
	Investment scoring.InvestmentScore `json:"investment"`
	Risk       scoring.RiskAssessment  `json:"risk"`
	Warnings   []string                `json:"warnings,omitempty"`
}

// AnalyzeStock merges record, quote and valuation and scores the result.
// Only the record is required; quote and valuation failures become warnings.
func (s *Service) AnalyzeStock(ctx context.Context, symbol string) (*StockAnalysis, error) {
	res, err := s.GetSymbolRecord(ctx, symbol)
	if err != nil {
		return nil, err
	}

	a := &StockAnalysis{Record: res.Record}

	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		a.Warnings = append(a.Warnings, warning("quote", err))
	}
	a.Quote = quote

	val, err := s.GetValuation(ctx, symbol)
	if err != nil {
		a.Warnings = append(a.Warnings, warning("valuation", err))
	}
	a.Valuation = val

	in := scoring.InputFrom(res.Record, quote, val)
	a.Investment = scoring.ScoreInvestment(in)
	a.Risk = scoring.ScoreRisk(in)

	return a, nil
}

func warning(part string, err error) string {
	if errors.Is(err, contracts.ErrNotFound) {
		return part + " unavailable"
	}
	return fmt.Sprintf("%s: %v", part, err)
}

// SectorAnalysis summarizes the scored members of one sector
type SectorAnalysis struct {
	Sector       string               `json:"sector"`
	Kind         contracts.SectorKind `json:"kind"`
	MemberCount  int                  `json:"member_count"`
	Analyzed     int                  `json:"analyzed"`
	Failed       int                  `json:"failed"`
	AverageScore float64              `json:"average_score"`
	TopPicks     []*StockAnalysis     `json:"top_picks"`
	Stocks       []*StockAnalysis     `json:"stocks"`
}

// AnalyzeSector scores the first limit members of a sector.
// limit <= 0 uses the default; it is capped at MaxSectorLimit.
func (s *Service) AnalyzeSector(ctx context.Context, name string, kind contracts.SectorKind, limit int) (*SectorAnalysis, error) {
	if !kind.Valid() {
		return nil, &contracts.ValidationError{Field: "kind", Reason: "must be industry or concept"}
	}
	if name == "" {
		return nil, &contracts.ValidationError{Field: "sector", Reason: "required"}
	}
	if limit <= 0 {
		limit = DefaultSectorLimit
	}
	if limit > MaxSectorLimit {
		limit = MaxSectorLimit
	}

	members, err := s.sectorMembers(ctx, name, kind)
	if err != nil {
		return nil, err
	}

	out := &SectorAnalysis{
		Sector:      name,
		Kind:        kind,
		MemberCount: len(members),
		TopPicks:    make([]*StockAnalysis, 0, topPickCount),
		Stocks:      make([]*StockAnalysis, 0),
	}
	if len(members) > limit {
		members = members[:limit]
	}

	// results keeps member order regardless of completion order
	results := make([]*StockAnalysis, len(members))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sectorConcurrency)
	for i, m := range members {
		i, m := i, m
		g.Go(func() error {
			a, err := s.AnalyzeStock(gctx, m.Symbol)
			if err != nil {
				s.logger.WithError(err).WithField("symbol", m.Symbol).Debug("Skipping sector member")
				return nil
			}
			results[i] = a
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, a := range results {
		if a == nil {
			out.Failed++
			continue
		}
		out.Stocks = append(out.Stocks, a)
		total += a.Investment.Total
	}
	out.Analyzed = len(out.Stocks)
	if out.Analyzed > 0 {
		out.AverageScore = float64(total) / float64(out.Analyzed)
	}

	for _, a := range out.Stocks {
		if a.Investment.Total >= topPickScore {
			out.TopPicks = append(out.TopPicks, a)
		}
	}
	sort.SliceStable(out.TopPicks, func(i, j int) bool {
		return out.TopPicks[i].Investment.Total > out.TopPicks[j].Investment.Total
	})
	if len(out.TopPicks) > topPickCount {
		out.TopPicks = out.TopPicks[:topPickCount]
	}

	return out, nil
}

// Snapshot returns the live listing fields for an exchange-qualified ticker such as "600584.SH".
// The record is required; quote and valuation are filled when available.
func (s *Service) Snapshot(ctx context.Context, ticker string) (*contracts.ListingSnapshot, error) {
	symbol, market, ok := contracts.ParseTicker(ticker)
	if !ok {
		return nil, &contracts.ValidationError{Field: "ticker", Reason: "not a mainland A-share listing"}
	}

	res, err := s.GetSymbolRecord(ctx, symbol)
	if err != nil {
		return nil, err
	}

	snap := &contracts.ListingSnapshot{
		Ticker:   ticker,
		Symbol:   symbol,
		Market:   market,
		Name:     res.Record.Name,
		Industry: res.Record.Industry,
	}

	if quote, err := s.GetQuote(ctx, symbol); err == nil {
		snap.Price = quote.Price
		snap.ChangePct = quote.ChangePct
		snap.Volume = quote.Volume
	} else if !errors.Is(err, contracts.ErrNotFound) {
		s.logger.WithError(err).WithField("ticker", ticker).Debug("Quote unavailable for snapshot")
	}

	if val, err := s.GetValuation(ctx, symbol); err == nil {
		snap.PETTM = val.PETTM
		snap.MarketCap = val.MarketCap
	} else if !errors.Is(err, contracts.ErrNotFound) {
		s.logger.WithError(err).WithField("ticker", ticker).Debug("Valuation unavailable for snapshot")
	}

	return snap, nil
}
