package aktools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/httputil"
	"github.com/wonny/stocklens/pkg/logger"
)

// akshare functions exposed by the AKTools gateway
const (
	fnCodeName       = "stock_info_a_code_name"
	fnIndividualInfo = "stock_individual_info_em"
	fnBidAsk         = "stock_bid_ask_em"
	fnHistory        = "stock_zh_a_hist"
	fnIndicator      = "stock_a_indicator_lg"
	fnIndustryCons   = "stock_board_industry_cons_em"
	fnConceptCons    = "stock_board_concept_cons_em"
)

// Provider column names. Only this package knows them.
const (
	colItem  = "item"
	colValue = "value"

	colCode      = "code"
	colName      = "name"
	colBoardCode = "代码"
	colBoardName = "名称"

	itemShortName = "股票简称"
	itemIndustry  = "行业"
	itemRegion    = "地区"
	itemListDate  = "上市时间"

	itemLast      = "最新"
	itemChange    = "涨跌"
	itemChangePct = "涨幅"
	itemVolume    = "总手"
	itemAmount    = "金额"
	itemOpen      = "今开"
	itemHigh      = "最高"
	itemLow       = "最低"
	itemPrevClose = "昨收"

	colDate     = "日期"
	colOpen     = "开盘"
	colClose    = "收盘"
	colHigh     = "最高"
	colLow      = "最低"
	colVolume   = "成交量"
	colAmount   = "成交额"
	colChange   = "涨跌幅"
	colTurnover = "换手率"

	colTradeDate = "trade_date"
	colPE        = "pe"
	colPETTM     = "pe_ttm"
	colPB        = "pb"
	colPSTTM     = "ps_ttm"
	colTotalMV   = "total_mv" // 万元
)

// ProfileFetcher supplies descriptive fields the gateway does not carry
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (*contracts.CompanyProfile, error)
}

// Source implements contracts.MarketDataSource over an AKTools HTTP gateway
// ⭐ SSOT: akshare 호출은 이 클라이언트에서만
type Source struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	profiles   ProfileFetcher
}

// NewSource creates a new AKTools source
func NewSource(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Source {
	return &Source{
		httpClient: httpClient,
		logger:     log.Module("aktools"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithProfiles attaches a profile fetcher used to complete symbol records
func (s *Source) WithProfiles(p ProfileFetcher) *Source {
	s.profiles = p
	return s
}

// call invokes one akshare function and returns its rows
func (s *Source) call(ctx context.Context, fn string, params url.Values) ([]row, error) {
	target := fmt.Sprintf("%s/api/public/%s", s.baseURL, fn)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var rows []row
	if err := s.httpClient.GetJSON(ctx, target, &rows); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return rows, nil
}

// ListAllSymbols returns the full A-share universe
func (s *Source) ListAllSymbols(ctx context.Context) ([]contracts.SymbolRecord, error) {
	rows, err := s.call(ctx, fnCodeName, nil)
	if err != nil {
		return nil, contracts.NewSourceError("list all symbols", "", err)
	}
	return listings(rows, colCode, colName), nil
}

// FetchSymbolRecord builds a record from the individual-info frame and the profile page
func (s *Source) FetchSymbolRecord(ctx context.Context, symbol string) (*contracts.SymbolRecord, error) {
	rows, err := s.call(ctx, fnIndividualInfo, url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, contracts.NewSourceError("fetch symbol record", symbol, err)
	}

	info := itemValues(rows)
	name := text(info[itemShortName])
	if name == "" {
		return nil, contracts.ErrNotFound
	}

	rec := &contracts.SymbolRecord{
		Symbol:      symbol,
		Name:        name,
		Industry:    text(info[itemIndustry]),
		Region:      text(info[itemRegion]),
		Market:      contracts.MarketOf(symbol),
		ConceptTags: []string{},
	}
	if d, ok := parseDate(info[itemListDate]); ok {
		rec.ListDate = &d
	}

	if s.profiles != nil {
		profile, err := s.profiles.FetchProfile(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Company profile unavailable, keeping gateway fields")
		} else {
			mergeProfile(rec, profile)
		}
	}

	return rec, nil
}

func mergeProfile(rec *contracts.SymbolRecord, p *contracts.CompanyProfile) {
	rec.FullName = p.FullName
	if rec.Region == "" {
		rec.Region = p.Region
	}
	if rec.ListDate == nil {
		rec.ListDate = p.ListDate
	}
	rec.ConceptTags = contracts.NormalizeConceptTags(p.ConceptTags, contracts.MaxConceptTags)
}

// FetchQuote returns the live order-book snapshot for one symbol
func (s *Source) FetchQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	rows, err := s.call(ctx, fnBidAsk, url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, contracts.NewSourceError("fetch quote", symbol, err)
	}

	info := itemValues(rows)
	price := optNumber(info[itemLast])
	if price == nil {
		return nil, contracts.ErrNotFound
	}

	return &contracts.Quote{
		Symbol:    symbol,
		Price:     price,
		Change:    optNumber(info[itemChange]),
		ChangePct: optNumber(info[itemChangePct]),
		Volume:    int64(numberOrZero(info[itemVolume])),
		Amount:    numberOrZero(info[itemAmount]),
		Open:      numberOrZero(info[itemOpen]),
		High:      numberOrZero(info[itemHigh]),
		Low:       numberOrZero(info[itemLow]),
		PrevClose: numberOrZero(info[itemPrevClose]),
		UpdatedAt: time.Now(),
	}, nil
}

// FetchHistory returns forward-adjusted daily bars, oldest first
func (s *Source) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]contracts.TradeBar, error) {
	rows, err := s.call(ctx, fnHistory, url.Values{
		"symbol":     {symbol},
		"period":     {"daily"},
		"start_date": {start.Format("20060102")},
		"end_date":   {end.Format("20060102")},
		"adjust":     {"qfq"},
	})
	if errors.Is(err, contracts.ErrNotFound) {
		return []contracts.TradeBar{}, nil
	}
	if err != nil {
		return nil, contracts.NewSourceError("fetch history", symbol, err)
	}

	bars := make([]contracts.TradeBar, 0, len(rows))
	for _, r := range rows {
		day, ok := parseDate(r[colDate])
		if !ok {
			s.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"date":   r[colDate],
			}).Debug("Skipping bar with unparsable date")
			continue
		}

		bars = append(bars, contracts.TradeBar{
			Symbol:       symbol,
			TradeDate:    day,
			Open:         decimal.NewFromFloat(numberOrZero(r[colOpen])),
			High:         decimal.NewFromFloat(numberOrZero(r[colHigh])),
			Low:          decimal.NewFromFloat(numberOrZero(r[colLow])),
			Close:        decimal.NewFromFloat(numberOrZero(r[colClose])),
			Volume:       int64(numberOrZero(r[colVolume])),
			Amount:       decimal.NewFromFloat(numberOrZero(r[colAmount])),
			ChangePct:    optNumber(r[colChange]),
			TurnoverRate: optNumber(r[colTurnover]),
		})
	}

	return bars, nil
}

// FetchValuation returns the most recent indicator row
func (s *Source) FetchValuation(ctx context.Context, symbol string) (*contracts.Valuation, error) {
	rows, err := s.call(ctx, fnIndicator, url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, contracts.NewSourceError("fetch valuation", symbol, err)
	}
	if len(rows) == 0 {
		return nil, contracts.ErrNotFound
	}

	latest := rows[len(rows)-1]
	v := &contracts.Valuation{
		Symbol: symbol,
		PETTM:  optNumber(latest[colPETTM]),
		PELYR:  optNumber(latest[colPE]),
		PB:     optNumber(latest[colPB]),
		PSTTM:  optNumber(latest[colPSTTM]),
	}
	if d, ok := parseDate(latest[colTradeDate]); ok {
		v.AsOf = d
	}
	if mv := optNumber(latest[colTotalMV]); mv != nil {
		v.MarketCap = contracts.Float(*mv * 1e4)
	}

	return v, nil
}

// FetchSectorMembers lists the constituents of an industry or concept board
func (s *Source) FetchSectorMembers(ctx context.Context, sectorName string, kind contracts.SectorKind) ([]contracts.SymbolRecord, error) {
	fn := fnIndustryCons
	if kind == contracts.SectorConcept {
		fn = fnConceptCons
	}

	rows, err := s.call(ctx, fn, url.Values{"symbol": {sectorName}})
	if errors.Is(err, contracts.ErrNotFound) {
		return []contracts.SymbolRecord{}, nil
	}
	if err != nil {
		return nil, contracts.NewSourceError("fetch sector members", sectorName, err)
	}

	return listings(rows, colBoardCode, colBoardName), nil
}

func listings(rows []row, codeCol, nameCol string) []contracts.SymbolRecord {
	out := make([]contracts.SymbolRecord, 0, len(rows))
	for _, r := range rows {
		code := text(r[codeCol])
		if code == "" {
			continue
		}
		out = append(out, contracts.SymbolRecord{
			Symbol: code,
			Name:   text(r[nameCol]),
			Market: contracts.MarketOf(code),
		})
	}
	return out
}

var _ contracts.MarketDataSource = (*Source)(nil)
