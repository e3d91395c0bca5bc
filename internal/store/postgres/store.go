package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/stocklens/internal/contracts"
)

//go:embed schema.sql
var schemaSQL string

// Store implements contracts.Store on PostgreSQL
// ⭐ SSOT: 종목/일봉 저장소는 여기서만
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new store on an open pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetSymbolRecord retrieves one symbol record
func (s *Store) GetSymbolRecord(ctx context.Context, symbol string) (*contracts.SymbolRecord, error) {
	query := `
		SELECT symbol, name, full_name, industry, concept_tags, region, market, list_date
		FROM market.symbols
		WHERE symbol = $1
	`

	var rec contracts.SymbolRecord
	var market string
	err := s.pool.QueryRow(ctx, query, symbol).Scan(
		&rec.Symbol, &rec.Name, &rec.FullName, &rec.Industry,
		&rec.ConceptTags, &rec.Region, &market, &rec.ListDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol record %s: %w", symbol, err)
	}

	rec.Market = contracts.Market(market)
	return &rec, nil
}

// UpsertSymbolRecord inserts or fully replaces a symbol record
func (s *Store) UpsertSymbolRecord(ctx context.Context, rec *contracts.SymbolRecord) error {
	query := `
		INSERT INTO market.symbols (symbol, name, full_name, industry, concept_tags, region, market, list_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			full_name = EXCLUDED.full_name,
			industry = EXCLUDED.industry,
			concept_tags = EXCLUDED.concept_tags,
			region = EXCLUDED.region,
			market = EXCLUDED.market,
			list_date = EXCLUDED.list_date,
			updated_at = now()
	`

	tags := rec.ConceptTags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		rec.Symbol, rec.Name, rec.FullName, rec.Industry, tags, rec.Region, string(rec.Market), rec.ListDate,
	)
	if err != nil {
		return contracts.PersistenceError("upsert symbol record "+rec.Symbol, err)
	}
	return nil
}

// ListAllSymbolKeys returns every stored symbol in ascending order
func (s *Store) ListAllSymbolKeys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT symbol FROM market.symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbol keys: %w", err)
	}

	symbols, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list symbol keys: %w", err)
	}
	return symbols, nil
}

// GetTradeBars returns bars in range, newest first
func (s *Store) GetTradeBars(ctx context.Context, symbol string, r contracts.DateRange, limit int) ([]contracts.TradeBar, error) {
	query := `
		SELECT symbol, trade_date,
			open_price::text, high_price::text, low_price::text, close_price::text,
			volume, amount::text, change_pct, turnover_rate
		FROM market.daily_trades
		WHERE symbol = $1
			AND ($2::date IS NULL OR trade_date >= $2::date)
			AND ($3::date IS NULL OR trade_date <= $3::date)
		ORDER BY trade_date DESC
		LIMIT $4
	`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.pool.Query(ctx, query, symbol, dateArg(r.From), dateArg(r.To), limitArg)
	if err != nil {
		return nil, fmt.Errorf("get trade bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []contracts.TradeBar
	for rows.Next() {
		var bar contracts.TradeBar
		var open, high, low, closePrice, amount string
		if err := rows.Scan(
			&bar.Symbol, &bar.TradeDate, &open, &high, &low, &closePrice,
			&bar.Volume, &amount, &bar.ChangePct, &bar.TurnoverRate,
		); err != nil {
			return nil, fmt.Errorf("scan trade bar %s: %w", symbol, err)
		}
		if err := parseDecimals(
			[]string{open, high, low, closePrice, amount},
			[]*decimal.Decimal{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Amount},
		); err != nil {
			return nil, fmt.Errorf("scan trade bar %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// UpsertTradeBars saves bars one row at a time; earlier rows stay written on failure
func (s *Store) UpsertTradeBars(ctx context.Context, bars []contracts.TradeBar) (int, error) {
	query := `
		INSERT INTO market.daily_trades (
			symbol, trade_date, open_price, high_price, low_price, close_price,
			volume, amount, change_pct, turnover_rate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount,
			change_pct = EXCLUDED.change_pct,
			turnover_rate = EXCLUDED.turnover_rate,
			updated_at = now()
	`

	written := 0
	var errs []error
	for _, bar := range bars {
		_, err := s.pool.Exec(ctx, query,
			bar.Symbol, contracts.Day(bar.TradeDate),
			bar.Open.String(), bar.High.String(), bar.Low.String(), bar.Close.String(),
			bar.Volume, bar.Amount.String(), bar.ChangePct, bar.TurnoverRate,
		)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", bar.Symbol, bar.TradeDate.Format(contracts.DateLayout), err))
			continue
		}
		written++
	}

	if len(errs) > 0 {
		return written, contracts.PersistenceError("upsert trade bars", errors.Join(errs...))
	}
	return written, nil
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return contracts.Day(t)
}

func parseDecimals(raw []string, dest []*decimal.Decimal) error {
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		*dest[i] = d
	}
	return nil
}

var _ contracts.Store = (*Store)(nil)
