package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 저장소 / 데이터 소스 인터페이스 정의는 여기서만

// SymbolStore persists SymbolRecords keyed by symbol
type SymbolStore interface {
	// GetSymbolRecord returns ErrNotFound when the symbol is unknown
	GetSymbolRecord(ctx context.Context, symbol string) (*SymbolRecord, error)
	// UpsertSymbolRecord replaces the whole record (last write wins)
	UpsertSymbolRecord(ctx context.Context, record *SymbolRecord) error
	ListAllSymbolKeys(ctx context.Context) ([]string, error)
}

// TradeStore persists TradeBars keyed by (symbol, trade date)
type TradeStore interface {
	// GetTradeBars returns bars inside r, newest first. limit <= 0 means no limit.
	GetTradeBars(ctx context.Context, symbol string, r DateRange, limit int) ([]TradeBar, error)
	// UpsertTradeBars writes row by row and returns how many rows were written.
	// A failed row does not roll back earlier ones.
	UpsertTradeBars(ctx context.Context, bars []TradeBar) (int, error)
}

// Store is the full persistent store
type Store interface {
	SymbolStore
	TradeStore
}

// MarketDataSource is the volatile external provider.
// Lookups by key return ErrNotFound for absence and a SourceError for failures.
type MarketDataSource interface {
	FetchSymbolRecord(ctx context.Context, symbol string) (*SymbolRecord, error)
	FetchQuote(ctx context.Context, symbol string) (*Quote, error)
	// FetchHistory returns bars oldest first; an empty slice is a valid result
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]TradeBar, error)
	FetchValuation(ctx context.Context, symbol string) (*Valuation, error)
	// FetchSectorMembers returns members with only Symbol and Name populated
	FetchSectorMembers(ctx context.Context, sectorName string, kind SectorKind) ([]SymbolRecord, error)
	ListAllSymbols(ctx context.Context) ([]SymbolRecord, error)
}
