// Package contractstest provides in-memory Store and MarketDataSource fakes for tests.
package contractstest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wonny/stocklens/internal/contracts"
)

// Store is an in-memory contracts.Store
type Store struct {
	mu      sync.Mutex
	symbols map[string]contracts.SymbolRecord
	bars    map[string]map[time.Time]contracts.TradeBar

	// UpsertErr, when set, fails every write
	UpsertErr error
	// ReadErr, when set, fails every read
	ReadErr error

	symbolWrites int
}

// NewStore creates an empty store seeded with records
func NewStore(records ...contracts.SymbolRecord) *Store {
	s := &Store{
		symbols: make(map[string]contracts.SymbolRecord),
		bars:    make(map[string]map[time.Time]contracts.TradeBar),
	}
	for _, r := range records {
		s.symbols[r.Symbol] = r
	}
	return s
}

func (s *Store) GetSymbolRecord(_ context.Context, symbol string) (*contracts.SymbolRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	rec, ok := s.symbols[symbol]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) UpsertSymbolRecord(_ context.Context, record *contracts.SymbolRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpsertErr != nil {
		return contracts.PersistenceError("upsert symbol", s.UpsertErr)
	}
	s.symbols[record.Symbol] = *record
	s.symbolWrites++
	return nil
}

func (s *Store) ListAllSymbolKeys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	keys := make([]string, 0, len(s.symbols))
	for k := range s.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetTradeBars(_ context.Context, symbol string, r contracts.DateRange, limit int) ([]contracts.TradeBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ReadErr != nil {
		return nil, s.ReadErr
	}

	out := make([]contracts.TradeBar, 0)
	for d, bar := range s.bars[symbol] {
		if r.Contains(d) {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.After(out[j].TradeDate) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpsertTradeBars(_ context.Context, bars []contracts.TradeBar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpsertErr != nil {
		return 0, contracts.PersistenceError("upsert trade bars", s.UpsertErr)
	}
	for _, b := range bars {
		byDate, ok := s.bars[b.Symbol]
		if !ok {
			byDate = make(map[time.Time]contracts.TradeBar)
			s.bars[b.Symbol] = byDate
		}
		byDate[contracts.Day(b.TradeDate)] = b
	}
	return len(bars), nil
}

// SymbolWrites counts successful symbol upserts
func (s *Store) SymbolWrites() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolWrites
}

// BarCount counts stored bars for symbol
func (s *Store) BarCount(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bars[symbol])
}

// Operation names counted by Source
const (
	OpFetchSymbolRecord  = "FetchSymbolRecord"
	OpFetchQuote         = "FetchQuote"
	OpFetchHistory       = "FetchHistory"
	OpFetchValuation     = "FetchValuation"
	OpFetchSectorMembers = "FetchSectorMembers"
	OpListAllSymbols     = "ListAllSymbols"
)

// ErrUpstream is a generic transient failure
var ErrUpstream = errors.New("upstream 503")

// Source is a scripted contracts.MarketDataSource that counts calls.
// Populate the maps before use; they are read-only afterwards.
type Source struct {
	Records    map[string]*contracts.SymbolRecord
	Quotes     map[string]*contracts.Quote
	Valuations map[string]*contracts.Valuation
	History    map[string][]contracts.TradeBar
	Sectors    map[string][]contracts.SymbolRecord // key: SectorKey(kind, name)
	Universe   []contracts.SymbolRecord

	// Err fails every call; FailKeys fails calls for one symbol or sector key
	Err      error
	FailKeys map[string]error
	// Delay blocks each call until it elapses or ctx is done
	Delay time.Duration

	mu    sync.Mutex
	calls map[string]int
	keys  []string
}

// NewSource creates an empty scripted source
func NewSource() *Source {
	return &Source{
		Records:    make(map[string]*contracts.SymbolRecord),
		Quotes:     make(map[string]*contracts.Quote),
		Valuations: make(map[string]*contracts.Valuation),
		History:    make(map[string][]contracts.TradeBar),
		Sectors:    make(map[string][]contracts.SymbolRecord),
		FailKeys:   make(map[string]error),
		calls:      make(map[string]int),
	}
}

// SectorKey builds the Sectors map key
func SectorKey(kind contracts.SectorKind, name string) string {
	return string(kind) + ":" + name
}

// Calls returns how many times op was invoked
func (s *Source) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// FetchedKeys returns the keys passed to FetchSymbolRecord in call order
func (s *Source) FetchedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

func (s *Source) begin(ctx context.Context, op, key string) error {
	s.mu.Lock()
	s.calls[op]++
	if op == OpFetchSymbolRecord {
		s.keys = append(s.keys, key)
	}
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return contracts.NewSourceError(op, key, ctx.Err())
		}
	}
	if s.Err != nil {
		return contracts.NewSourceError(op, key, s.Err)
	}
	if err, ok := s.FailKeys[key]; ok {
		return contracts.NewSourceError(op, key, err)
	}
	return nil
}

func (s *Source) FetchSymbolRecord(ctx context.Context, symbol string) (*contracts.SymbolRecord, error) {
	if err := s.begin(ctx, OpFetchSymbolRecord, symbol); err != nil {
		return nil, err
	}
	rec, ok := s.Records[symbol]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Source) FetchQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if err := s.begin(ctx, OpFetchQuote, symbol); err != nil {
		return nil, err
	}
	q, ok := s.Quotes[symbol]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.TradeBar, error) {
	if err := s.begin(ctx, OpFetchHistory, symbol); err != nil {
		return nil, err
	}
	r := contracts.DateRange{From: start, To: end}
	out := make([]contracts.TradeBar, 0)
	for _, b := range s.History[symbol] {
		if r.Contains(b.TradeDate) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Source) FetchValuation(ctx context.Context, symbol string) (*contracts.Valuation, error) {
	if err := s.begin(ctx, OpFetchValuation, symbol); err != nil {
		return nil, err
	}
	v, ok := s.Valuations[symbol]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Source) FetchSectorMembers(ctx context.Context, sectorName string, kind contracts.SectorKind) ([]contracts.SymbolRecord, error) {
	key := SectorKey(kind, sectorName)
	if err := s.begin(ctx, OpFetchSectorMembers, key); err != nil {
		return nil, err
	}
	return append([]contracts.SymbolRecord{}, s.Sectors[key]...), nil
}

func (s *Source) ListAllSymbols(ctx context.Context) ([]contracts.SymbolRecord, error) {
	if err := s.begin(ctx, OpListAllSymbols, ""); err != nil {
		return nil, err
	}
	return append([]contracts.SymbolRecord{}, s.Universe...), nil
}

var (
	_ contracts.Store            = (*Store)(nil)
	_ contracts.MarketDataSource = (*Source)(nil)
)
