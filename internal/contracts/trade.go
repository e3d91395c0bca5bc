package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format for trade dates
const DateLayout = "2006-01-02"

// TradeBar is one trading day's OHLCV for one symbol.
// (Symbol, TradeDate) is unique; an upsert replaces every other field.
type TradeBar struct {
	Symbol       string          `json:"symbol"`
	TradeDate    time.Time       `json:"trade_date"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       int64           `json:"volume"`
	Amount       decimal.Decimal `json:"amount"`
	ChangePct    *float64        `json:"change_pct,omitempty"`
	TurnoverRate *float64        `json:"turnover_rate,omitempty"`
}

// DateRange is an inclusive range of calendar dates. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day truncates t to a UTC calendar date
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SingleDay returns the range covering exactly one date
func SingleDay(d time.Time) DateRange {
	d = Day(d)
	return DateRange{From: d, To: d}
}

// LastDays returns the range of the n calendar days ending at end
func LastDays(end time.Time, n int) DateRange {
	end = Day(end)
	return DateRange{From: end.AddDate(0, 0, -n), To: end}
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d time.Time) bool {
	d = Day(d)
	if !r.From.IsZero() && d.Before(Day(r.From)) {
		return false
	}
	if !r.To.IsZero() && d.After(Day(r.To)) {
		return false
	}
	return true
}
