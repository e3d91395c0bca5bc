package stockdata

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/logger"
	"github.com/wonny/stocklens/pkg/redis"
)

// Defaults
const (
	DefaultSourceTimeout = 10 * time.Second
	DefaultHistoryDays   = 30
	latestBarWindowDays  = 5
	maxSectorConcepts    = 5
)

// Service is the cache-aside read path: store first, source second, write-back always.
// ⭐ SSOT: 종목 조회(store → source → upsert)는 여기서만
type Service struct {
	store  contracts.Store
	source contracts.MarketDataSource
	logger *logger.Logger

	cache    *redis.Cache
	cacheTTL time.Duration

	sourceTimeout time.Duration
	now           func() time.Time
}

// Config holds service tuning
type Config struct {
	SourceTimeout time.Duration // per external call
	QuoteCacheTTL time.Duration // 0 disables the quote/valuation cache
}

// NewService creates a new cache-aside service
func NewService(store contracts.Store, source contracts.MarketDataSource, cfg Config, log *logger.Logger) *Service {
	timeout := cfg.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}

	return &Service{
		store:         store,
		source:        source,
		logger:        log.Module("stockdata"),
		cacheTTL:      cfg.QuoteCacheTTL,
		sourceTimeout: timeout,
		now:           time.Now,
	}
}

// WithCache enables the positive-only quote/valuation cache
func (s *Service) WithCache(cache *redis.Cache) *Service {
	s.cache = cache
	return s
}

// SymbolResult is a SymbolRecord tagged with where it came from
type SymbolResult struct {
	Record *contracts.SymbolRecord `json:"record"`
	Origin contracts.Origin        `json:"source"`
}

// TradeBarResult is a single bar tagged with where it came from
type TradeBarResult struct {
	Bar    *contracts.TradeBar `json:"bar"`
	Origin contracts.Origin    `json:"source"`
}

// TradeHistoryResult is a newest-first bar sequence tagged with where it came from
type TradeHistoryResult struct {
	Symbol string               `json:"symbol"`
	From   time.Time            `json:"from"`
	To     time.Time            `json:"to"`
	Bars   []contracts.TradeBar `json:"bars"`
	Origin contracts.Origin     `json:"source"`
}

// withTimeout bounds one external call
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.sourceTimeout)
}

// sourceErr normalizes a source failure. A timeout is a failure, never a miss.
func sourceErr(op, key string, err error) error {
	if err == nil || errors.Is(err, contracts.ErrNotFound) || errors.Is(err, contracts.ErrSourceUnavailable) {
		return err
	}
	return contracts.NewSourceError(op, key, err)
}

// GetSymbolRecord returns ErrNotFound when neither the store nor the source knows symbol
func (s *Service) GetSymbolRecord(ctx context.Context, symbol string) (*SymbolResult, error) {
	if err := contracts.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	rec, err := s.store.GetSymbolRecord(ctx, symbol)
	switch {
	case err == nil:
		return &SymbolResult{Record: rec, Origin: contracts.OriginStore}, nil
	case !errors.Is(err, contracts.ErrNotFound):
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Store read failed, falling back to source")
	}

	fetchCtx, cancel := s.withTimeout(ctx)
	rec, err = s.source.FetchSymbolRecord(fetchCtx, symbol)
	cancel()
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			s.logger.WithField("symbol", symbol).Debug("Symbol not found at source")
		}
		return nil, sourceErr("fetch symbol record", symbol, err)
	}

	rec.Normalize()

	if err := s.store.UpsertSymbolRecord(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Failed to write back symbol record")
	}

	return &SymbolResult{Record: rec, Origin: contracts.OriginExternal}, nil
}

// GetTradeBar returns the bar for date, or the latest stored bar when date is nil.
// On a store miss the surrounding window is fetched and written back whole.
func (s *Service) GetTradeBar(ctx context.Context, symbol string, date *time.Time) (*TradeBarResult, error) {
	if err := contracts.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var r contracts.DateRange
	if date != nil {
		r = contracts.SingleDay(*date)
	}

	bars, err := s.store.GetTradeBars(ctx, symbol, r, 1)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Store read failed, falling back to source")
	} else if len(bars) > 0 {
		return &TradeBarResult{Bar: &bars[0], Origin: contracts.OriginStore}, nil
	}

	window := r
	if date == nil {
		window = contracts.LastDays(s.now(), latestBarWindowDays)
	}

	fetched, err := s.fetchHistory(ctx, symbol, window)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, contracts.ErrNotFound
	}

	s.writeBack(ctx, symbol, fetched)

	// fetched is oldest first
	bar := fetched[len(fetched)-1]
	if date != nil {
		found := false
		for i := range fetched {
			if contracts.Day(fetched[i].TradeDate).Equal(r.From) {
				bar, found = fetched[i], true
				break
			}
		}
		if !found {
			return nil, contracts.ErrNotFound
		}
	}

	return &TradeBarResult{Bar: &bar, Origin: contracts.OriginExternal}, nil
}

// GetTradeHistory returns bars in r newest first. Open bounds default to the last 30 days.
func (s *Service) GetTradeHistory(ctx context.Context, symbol string, r contracts.DateRange) (*TradeHistoryResult, error) {
	if err := contracts.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	r = s.historyRange(r)

	result := &TradeHistoryResult{Symbol: symbol, From: r.From, To: r.To}

	bars, err := s.store.GetTradeBars(ctx, symbol, r, 0)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Warn("Store read failed, falling back to source")
	} else if len(bars) > 0 {
		result.Bars = bars
		result.Origin = contracts.OriginStore
		return result, nil
	}

	fetched, err := s.fetchHistory(ctx, symbol, r)
	if err != nil {
		return nil, err
	}

	if len(fetched) > 0 {
		s.writeBack(ctx, symbol, fetched)
	}

	sort.SliceStable(fetched, func(i, j int) bool {
		return fetched[i].TradeDate.After(fetched[j].TradeDate)
	})
	result.Bars = fetched
	result.Origin = contracts.OriginExternal
	return result, nil
}

func (s *Service) historyRange(r contracts.DateRange) contracts.DateRange {
	if r.To.IsZero() {
		r.To = contracts.Day(s.now())
	}
	if r.From.IsZero() {
		r.From = contracts.Day(r.To).AddDate(0, 0, -DefaultHistoryDays)
	}
	return r
}

func (s *Service) fetchHistory(ctx context.Context, symbol string, r contracts.DateRange) ([]contracts.TradeBar, error) {
	fetchCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	bars, err := s.source.FetchHistory(fetchCtx, symbol, r.From, r.To)
	if err != nil {
		return nil, sourceErr("fetch history", symbol, err)
	}
	for i := range bars {
		bars[i].Symbol = symbol
	}
	return bars, nil
}

func (s *Service) writeBack(ctx context.Context, symbol string, bars []contracts.TradeBar) {
	written, err := s.store.UpsertTradeBars(ctx, bars)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"symbol":  symbol,
			"rows":    len(bars),
			"written": written,
		}).Warn("Failed to write back trade bars")
	}
}

// GetQuote returns a live quote. Positive results may be cached briefly; absence never is.
func (s *Service) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if err := contracts.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var cached contracts.Quote
	if s.cacheGet(ctx, redis.QuoteKey(symbol), &cached) {
		return &cached, nil
	}

	fetchCtx, cancel := s.withTimeout(ctx)
	quote, err := s.source.FetchQuote(fetchCtx, symbol)
	cancel()
	if err != nil {
		return nil, sourceErr("fetch quote", symbol, err)
	}

	s.cacheSet(ctx, redis.QuoteKey(symbol), quote)
	return quote, nil
}

// GetValuation returns the latest valuation multiples
func (s *Service) GetValuation(ctx context.Context, symbol string) (*contracts.Valuation, error) {
	if err := contracts.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	var cached contracts.Valuation
	if s.cacheGet(ctx, redis.ValuationKey(symbol), &cached) {
		return &cached, nil
	}

	fetchCtx, cancel := s.withTimeout(ctx)
	val, err := s.source.FetchValuation(fetchCtx, symbol)
	cancel()
	if err != nil {
		return nil, sourceErr("fetch valuation", symbol, err)
	}

	s.cacheSet(ctx, redis.ValuationKey(symbol), val)
	return val, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil || s.cacheTTL <= 0 {
		return false
	}
	found, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
