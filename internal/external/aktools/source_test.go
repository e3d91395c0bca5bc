package aktools

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/httputil"
	"github.com/wonny/stocklens/pkg/logger"
)

func newTestSource(t *testing.T, routes map[string]string) (*Source, map[string]int) {
	t.Helper()

	hits := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		body, ok := routes[r.URL.Path+"?"+r.URL.RawQuery]
		if !ok {
			body, ok = routes[r.URL.Path]
		}
		switch {
		case !ok:
			w.WriteHeader(http.StatusNotFound)
		case body == "500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(server.Close)

	client := httputil.NewWithTimeout(logger.Nop(), 2*time.Second)
	return NewSource(client, server.URL+"/", logger.Nop()), hits
}

type stubProfiles struct {
	profile *contracts.CompanyProfile
	err     error
}

func (s stubProfiles) FetchProfile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error) {
	return s.profile, s.err
}

const individualInfo = `[
	{"item": "股票代码", "value": "600000"},
	{"item": "股票简称", "value": "浦发银行"},
	{"item": "行业", "value": "银行"},
	{"item": "上市时间", "value": 19991110},
	{"item": "总市值", "value": 2.6e11}
]`

func TestFetchSymbolRecord(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_individual_info_em?symbol=600000": individualInfo,
	})

	rec, err := src.FetchSymbolRecord(context.Background(), "600000")
	require.NoError(t, err)
	assert.Equal(t, "浦发银行", rec.Name)
	assert.Equal(t, "银行", rec.Industry)
	assert.Equal(t, contracts.MarketShanghai, rec.Market)
	require.NotNil(t, rec.ListDate)
	assert.Equal(t, "1999-11-10", rec.ListDate.Format(contracts.DateLayout))
	assert.Empty(t, rec.ConceptTags)
}

func TestFetchSymbolRecord_MergesProfile(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_individual_info_em": individualInfo,
	})
	src.WithProfiles(stubProfiles{profile: &contracts.CompanyProfile{
		FullName:    "上海浦东发展银行股份有限公司",
		Region:      "上海",
		ConceptTags: []string{"上证50", "破净股", "上证50"},
	}})

	rec, err := src.FetchSymbolRecord(context.Background(), "600000")
	require.NoError(t, err)
	assert.Equal(t, "上海浦东发展银行股份有限公司", rec.FullName)
	assert.Equal(t, "上海", rec.Region)
	assert.Equal(t, []string{"上证50", "破净股"}, rec.ConceptTags)
}

func TestFetchSymbolRecord_ProfileFailureIsSoft(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_individual_info_em": individualInfo,
	})
	src.WithProfiles(stubProfiles{err: errors.New("blocked")})

	rec, err := src.FetchSymbolRecord(context.Background(), "600000")
	require.NoError(t, err)
	assert.Equal(t, "浦发银行", rec.Name)
	assert.Empty(t, rec.FullName)
}

func TestFetchSymbolRecord_NotFound(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_individual_info_em": `[]`,
	})

	_, err := src.FetchSymbolRecord(context.Background(), "999999")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestFetchSymbolRecord_ProviderFailure(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_individual_info_em": "500",
	})

	_, err := src.FetchSymbolRecord(context.Background(), "600000")
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrSourceUnavailable)
	assert.NotErrorIs(t, err, contracts.ErrNotFound)
}

func TestFetchQuote(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_bid_ask_em": `[
			{"item": "最新", "value": 7.12},
			{"item": "涨跌", "value": -0.08},
			{"item": "涨幅", "value": -1.11},
			{"item": "总手", "value": 356812},
			{"item": "金额", "value": 254000000.5},
			{"item": "今开", "value": 7.2},
			{"item": "昨收", "value": 7.2}
		]`,
	})

	q, err := src.FetchQuote(context.Background(), "600000")
	require.NoError(t, err)
	require.NotNil(t, q.Price)
	assert.InDelta(t, 7.12, *q.Price, 1e-9)
	require.NotNil(t, q.ChangePct)
	assert.InDelta(t, -1.11, *q.ChangePct, 1e-9)
	assert.Equal(t, int64(356812), q.Volume)
}

func TestFetchQuote_NoPriceIsNotFound(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_bid_ask_em": `[{"item": "最新", "value": null}]`,
	})

	_, err := src.FetchQuote(context.Background(), "600000")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestFetchHistory(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_zh_a_hist": `[
			{"日期": "2024-01-02T00:00:00.000", "股票代码": "000001", "开盘": 9.39, "收盘": 9.21, "最高": 9.42, "最低": 9.21, "成交量": 1158366, "成交额": 1075742252.45, "涨跌幅": -1.92, "换手率": 0.6},
			{"日期": "2024-01-03", "开盘": 9.19, "收盘": 9.2, "最高": 9.22, "最低": 9.15, "成交量": 733610, "成交额": 673673613.0, "涨跌幅": null, "换手率": 0.38},
			{"日期": "bad", "开盘": 1}
		]`,
	})

	bars, err := src.FetchHistory(context.Background(), "000001",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "2024-01-02", bars[0].TradeDate.Format(contracts.DateLayout))
	assert.Equal(t, "9.21", bars[0].Close.String())
	assert.Equal(t, int64(1158366), bars[0].Volume)
	require.NotNil(t, bars[0].ChangePct)
	assert.Nil(t, bars[1].ChangePct)
	require.NotNil(t, bars[1].TurnoverRate)
}

func TestFetchHistory_EmptyIsValid(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_zh_a_hist": `[]`,
	})

	bars, err := src.FetchHistory(context.Background(), "000001", time.Now().AddDate(0, 0, -5), time.Now())
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestFetchValuation(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_a_indicator_lg": `[
			{"trade_date": "2024-01-02", "pe": 5.1, "pe_ttm": 5.0, "pb": 0.45, "ps_ttm": 1.4, "total_mv": 2000000},
			{"trade_date": "2024-01-03", "pe": 5.2, "pe_ttm": 4.9, "pb": 0.46, "ps_ttm": null, "total_mv": 2100000}
		]`,
	})

	v, err := src.FetchValuation(context.Background(), "600000")
	require.NoError(t, err)
	require.NotNil(t, v.PETTM)
	assert.InDelta(t, 4.9, *v.PETTM, 1e-9)
	assert.Nil(t, v.PSTTM)
	require.NotNil(t, v.MarketCap)
	assert.InDelta(t, 2.1e10, *v.MarketCap, 1)
	assert.Equal(t, "2024-01-03", v.AsOf.Format(contracts.DateLayout))
}

func TestFetchSectorMembers(t *testing.T) {
	src, hits := newTestSource(t, map[string]string{
		"/api/public/stock_board_concept_cons_em": `[
			{"序号": 1, "代码": "300750", "名称": "宁德时代"},
			{"序号": 2, "代码": "002594", "名称": "比亚迪"}
		]`,
	})

	members, err := src.FetchSectorMembers(context.Background(), "锂电池", contracts.SectorConcept)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "300750", members[0].Symbol)
	assert.Equal(t, "比亚迪", members[1].Name)
	assert.Equal(t, 1, hits["/api/public/stock_board_concept_cons_em"])
	assert.Zero(t, hits["/api/public/stock_board_industry_cons_em"])
}

func TestListAllSymbols(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"/api/public/stock_info_a_code_name": `[
			{"code": "000001", "name": "平安银行"},
			{"code": "", "name": "broken"},
			{"code": "600000", "name": "浦发银行"}
		]`,
	})

	all, err := src.ListAllSymbols(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, contracts.MarketShenzhen, all[0].Market)
}
