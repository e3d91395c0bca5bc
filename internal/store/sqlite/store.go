package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stocklens/internal/contracts"
)

//go:embed schema.sql
var schemaSQL string

// Store implements contracts.Store on an embedded SQLite file.
// Dates are stored as YYYY-MM-DD text and prices as decimal text.
type Store struct {
	db *sql.DB
}

// New creates a new store on an open database
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) GetSymbolRecord(ctx context.Context, symbol string) (*contracts.SymbolRecord, error) {
	query := `
		SELECT symbol, name, full_name, industry, concept_tags, region, market, list_date
		FROM symbols
		WHERE symbol = ?
	`

	var rec contracts.SymbolRecord
	var tags, market string
	var listDate sql.NullString
	err := s.db.QueryRowContext(ctx, query, symbol).Scan(
		&rec.Symbol, &rec.Name, &rec.FullName, &rec.Industry, &tags, &rec.Region, &market, &listDate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol record %s: %w", symbol, err)
	}

	if err := json.Unmarshal([]byte(tags), &rec.ConceptTags); err != nil {
		return nil, fmt.Errorf("decode concept tags %s: %w", symbol, err)
	}
	rec.Market = contracts.Market(market)
	if listDate.Valid {
		d, err := time.Parse(contracts.DateLayout, listDate.String)
		if err != nil {
			return nil, fmt.Errorf("decode list date %s: %w", symbol, err)
		}
		rec.ListDate = &d
	}

	return &rec, nil
}

func (s *Store) UpsertSymbolRecord(ctx context.Context, rec *contracts.SymbolRecord) error {
	query := `
		INSERT INTO symbols (symbol, name, full_name, industry, concept_tags, region, market, list_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol) DO UPDATE SET
			name = excluded.name,
			full_name = excluded.full_name,
			industry = excluded.industry,
			concept_tags = excluded.concept_tags,
			region = excluded.region,
			market = excluded.market,
			list_date = excluded.list_date,
			updated_at = datetime('now')
	`

	tags := rec.ConceptTags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return contracts.PersistenceError("encode concept tags "+rec.Symbol, err)
	}

	var listDate sql.NullString
	if rec.ListDate != nil {
		listDate = sql.NullString{String: rec.ListDate.Format(contracts.DateLayout), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, query,
		rec.Symbol, rec.Name, rec.FullName, rec.Industry, string(encoded), rec.Region, string(rec.Market), listDate,
	)
	if err != nil {
		return contracts.PersistenceError("upsert symbol record "+rec.Symbol, err)
	}
	return nil
}

func (s *Store) ListAllSymbolKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM symbols ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbol keys: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("list symbol keys: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

func (s *Store) GetTradeBars(ctx context.Context, symbol string, r contracts.DateRange, limit int) ([]contracts.TradeBar, error) {
	query := `
		SELECT symbol, trade_date, open_price, high_price, low_price, close_price,
			volume, amount, change_pct, turnover_rate
		FROM daily_trades
		WHERE symbol = ?
			AND (? = '' OR trade_date >= ?)
			AND (? = '' OR trade_date <= ?)
		ORDER BY trade_date DESC
		LIMIT ?
	`

	from, to := dateText(r.From), dateText(r.To)
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, symbol, from, from, to, to, limit)
	if err != nil {
		return nil, fmt.Errorf("get trade bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []contracts.TradeBar
	for rows.Next() {
		var bar contracts.TradeBar
		var tradeDate string
		if err := rows.Scan(
			&bar.Symbol, &tradeDate, &bar.Open, &bar.High, &bar.Low, &bar.Close,
			&bar.Volume, &bar.Amount, &bar.ChangePct, &bar.TurnoverRate,
		); err != nil {
			return nil, fmt.Errorf("scan trade bar %s: %w", symbol, err)
		}
		if bar.TradeDate, err = time.Parse(contracts.DateLayout, tradeDate); err != nil {
			return nil, fmt.Errorf("scan trade bar %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

func (s *Store) UpsertTradeBars(ctx context.Context, bars []contracts.TradeBar) (int, error) {
	query := `
		INSERT INTO daily_trades (
			symbol, trade_date, open_price, high_price, low_price, close_price,
			volume, amount, change_pct, turnover_rate
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open_price = excluded.open_price,
			high_price = excluded.high_price,
			low_price = excluded.low_price,
			close_price = excluded.close_price,
			volume = excluded.volume,
			amount = excluded.amount,
			change_pct = excluded.change_pct,
			turnover_rate = excluded.turnover_rate,
			updated_at = datetime('now')
	`

	written := 0
	var errs []error
	for _, bar := range bars {
		_, err := s.db.ExecContext(ctx, query,
			bar.Symbol, bar.TradeDate.Format(contracts.DateLayout),
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

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(contracts.DateLayout)
}

var _ contracts.Store = (*Store)(nil)
