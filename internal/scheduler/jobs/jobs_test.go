package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/contracts/contractstest"
	"github.com/wonny/stocklens/internal/crawler"
	"github.com/wonny/stocklens/internal/scheduler"
	"github.com/wonny/stocklens/pkg/logger"
)

func TestDailyTradeJob(t *testing.T) {
	store := contractstest.NewStore(contracts.SymbolRecord{Symbol: "600000", Name: "浦发银行"})
	source := contractstest.NewSource()
	today := time.Now().In(time.UTC)
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	source.History["600000"] = []contracts.TradeBar{{Symbol: "600000", TradeDate: day, Close: decimal.NewFromInt(10)}}

	c := crawler.New(store, source, crawler.Config{Location: time.UTC}, logger.Nop())
	job := NewDailyTradeJob(c, logger.Nop())

	assert.Equal(t, "daily_trade", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, store.BarCount("600000"))
}

func TestWeeklyReferenceJob_UpdatesExisting(t *testing.T) {
	rec := contracts.SymbolRecord{Symbol: "600000", Name: "浦发银行"}
	store := contractstest.NewStore(rec)
	source := contractstest.NewSource()
	source.Universe = []contracts.SymbolRecord{rec}
	source.Records["600000"] = &contracts.SymbolRecord{Symbol: "600000", Name: "浦发银行", Industry: "银行"}

	c := crawler.New(store, source, crawler.Config{}, logger.Nop())
	job := NewWeeklyReferenceJob(c, 2, logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"600000"}, source.FetchedKeys(), "existing symbols are refreshed")
}

func TestWeeklyReferenceJob_UniverseFailure(t *testing.T) {
	source := contractstest.NewSource()
	source.Err = contractstest.ErrUpstream

	c := crawler.New(contractstest.NewStore(), source, crawler.Config{}, logger.Nop())
	err := NewWeeklyReferenceJob(c, 2, logger.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
}

// MockTradeCrawler is a mock implementation of TradeCrawler
type MockTradeCrawler struct {
	mock.Mock
}

func (m *MockTradeCrawler) CrawlToday(ctx context.Context) (*crawler.TradeStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crawler.TradeStats), args.Error(1)
}

// MockPinger is a mock implementation of Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestDailyTradeJob_SymbolFailuresAreNotJobFailures(t *testing.T) {
	mockCrawler := new(MockTradeCrawler)
	mockCrawler.On("CrawlToday", mock.Anything).Return(&crawler.TradeStats{RunID: "r1", Symbols: 3, Success: 1, Failed: 2}, nil)

	assert.NoError(t, NewDailyTradeJob(mockCrawler, logger.Nop()).Run(context.Background()))
	mockCrawler.AssertExpectations(t)
}

func TestDailyTradeJob_CrawlFailure(t *testing.T) {
	mockCrawler := new(MockTradeCrawler)
	mockCrawler.On("CrawlToday", mock.Anything).Return(nil, contracts.ErrPersistence)

	err := NewDailyTradeJob(mockCrawler, logger.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, contracts.ErrPersistence)
	assert.ErrorContains(t, err, "crawl today")
	mockCrawler.AssertExpectations(t)
}

func TestStoreHealthJob(t *testing.T) {
	healthy := new(MockPinger)
	healthy.On("Ping", mock.Anything).Return(nil)
	assert.NoError(t, NewStoreHealthJob(healthy, logger.Nop()).Run(context.Background()))
	healthy.AssertExpectations(t)

	down := new(MockPinger)
	down.On("Ping", mock.Anything).Return(errors.New("connection refused"))
	err := NewStoreHealthJob(down, logger.Nop()).Run(context.Background())
	assert.ErrorContains(t, err, "store ping")
	assert.ErrorContains(t, err, "connection refused")
	down.AssertExpectations(t)
}

func TestSchedulesParse(t *testing.T) {
	s := scheduler.New(scheduler.Config{}, logger.Nop())
	c := crawler.New(contractstest.NewStore(), contractstest.NewSource(), crawler.Config{}, logger.Nop())

	require.NoError(t, s.AddJob(NewDailyTradeJob(c, logger.Nop())))
	require.NoError(t, s.AddJob(NewWeeklyReferenceJob(c, 2, logger.Nop())))
	require.NoError(t, s.AddJob(NewStoreHealthJob(new(MockPinger), logger.Nop())))
	assert.Equal(t, []string{"daily_trade", "store_health", "weekly_reference"}, s.GetAllJobs())
}
