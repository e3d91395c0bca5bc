package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.OpenSQLite(t.TempDir() + "/stocklens.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db.Conn())
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func bar(symbol string, day int, closePrice string) contracts.TradeBar {
	c := decimal.RequireFromString(closePrice)
	return contracts.TradeBar{
		Symbol:    symbol,
		TradeDate: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:      c.Sub(decimal.NewFromFloat(0.1)),
		High:      c.Add(decimal.NewFromFloat(0.2)),
		Low:       c.Sub(decimal.NewFromFloat(0.3)),
		Close:     c,
		Volume:    100000 + int64(day),
		Amount:    c.Mul(decimal.NewFromInt(100000)),
		ChangePct: contracts.Float(1.25),
	}
}

func TestStore_SymbolRecordRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	listed := time.Date(1999, 11, 10, 0, 0, 0, 0, time.UTC)
	rec := &contracts.SymbolRecord{
		Symbol:      "600000",
		Name:        "浦发银行",
		FullName:    "上海浦东发展银行股份有限公司",
		Industry:    "银行",
		ConceptTags: []string{"上证50", "破净股"},
		Region:      "上海",
		Market:      contracts.MarketShanghai,
		ListDate:    &listed,
	}
	require.NoError(t, s.UpsertSymbolRecord(ctx, rec))

	got, err := s.GetSymbolRecord(ctx, "600000")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestStore_SymbolUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &contracts.SymbolRecord{Symbol: "000001", Name: "平安银行", Industry: "银行", Market: contracts.MarketShenzhen}
	require.NoError(t, s.UpsertSymbolRecord(ctx, rec))
	require.NoError(t, s.UpsertSymbolRecord(ctx, rec))

	keys, err := s.ListAllSymbolKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001"}, keys)

	got, err := s.GetSymbolRecord(ctx, "000001")
	require.NoError(t, err)
	assert.Empty(t, got.ConceptTags)
	assert.Nil(t, got.ListDate)
}

func TestStore_SymbolUpsertReplacesWholeRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSymbolRecord(ctx, &contracts.SymbolRecord{
		Symbol: "300750", Name: "宁德时代", Industry: "电池", Region: "福建", ConceptTags: []string{"锂电池"},
	}))
	require.NoError(t, s.UpsertSymbolRecord(ctx, &contracts.SymbolRecord{
		Symbol: "300750", Name: "宁德时代", Industry: "电力设备",
	}))

	got, err := s.GetSymbolRecord(ctx, "300750")
	require.NoError(t, err)
	assert.Equal(t, "电力设备", got.Industry)
	assert.Empty(t, got.Region)
	assert.Empty(t, got.ConceptTags)
}

func TestStore_GetSymbolRecordNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSymbolRecord(context.Background(), "123456")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestStore_TradeBarUpsertIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := bar("600000", 1, "10.45")
	n, err := s.UpsertTradeBars(ctx, []contracts.TradeBar{b})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.UpsertTradeBars(ctx, []contracts.TradeBar{b})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	bars, err := s.GetTradeBars(ctx, "600000", contracts.DateRange{}, 0)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, b.Close.Equal(bars[0].Close))
	assert.True(t, b.Amount.Equal(bars[0].Amount))
	require.NotNil(t, bars[0].ChangePct)
	assert.InDelta(t, 1.25, *bars[0].ChangePct, 1e-9)
	assert.Nil(t, bars[0].TurnoverRate)
}

func TestStore_TradeBarConflictReplacesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertTradeBars(ctx, []contracts.TradeBar{bar("600000", 1, "10.00")})
	require.NoError(t, err)
	_, err = s.UpsertTradeBars(ctx, []contracts.TradeBar{bar("600000", 1, "11.00")})
	require.NoError(t, err)

	bars, err := s.GetTradeBars(ctx, "600000", contracts.SingleDay(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), 1)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, "11", bars[0].Close.String())
}

func TestStore_GetTradeBarsRangeAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var bars []contracts.TradeBar
	for day := 1; day <= 5; day++ {
		bars = append(bars, bar("000001", day, fmt.Sprintf("%d.50", 10+day)))
	}
	_, err := s.UpsertTradeBars(ctx, bars)
	require.NoError(t, err)

	got, err := s.GetTradeBars(ctx, "000001", contracts.DateRange{
		From: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].TradeDate.Day())
	assert.Equal(t, 2, got[2].TradeDate.Day())

	latest, err := s.GetTradeBars(ctx, "000001", contracts.DateRange{}, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 5, latest[0].TradeDate.Day())

	none, err := s.GetTradeBars(ctx, "000002", contracts.DateRange{}, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ConcurrentUpsertsSameKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.UpsertSymbolRecord(ctx, &contracts.SymbolRecord{Symbol: "600519", Name: "贵州茅台"}))
		}()
	}
	wg.Wait()

	keys, err := s.ListAllSymbolKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"600519"}, keys)
}
