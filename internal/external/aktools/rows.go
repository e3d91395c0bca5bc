package aktools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// row is one record of an akshare DataFrame serialized by AKTools
type row map[string]any

// itemValues folds two-column item/value frames into a single row
func itemValues(rows []row) row {
	out := make(row, len(rows))
	for _, r := range rows {
		if key := text(r[colItem]); key != "" {
			out[key] = r[colValue]
		}
	}
	return out
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		s := strings.TrimSpace(strings.NewReplacer(",", "", "%", "").Replace(t))
		if s == "" || s == "-" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func optNumber(v any) *float64 {
	if f, ok := number(v); ok {
		return &f
	}
	return nil
}

func numberOrZero(v any) float64 {
	f, _ := number(v)
	return f
}

// parseDate accepts "2024-01-02", "2024-01-02T00:00:00.000", "20240102" and 20240102
func parseDate(v any) (time.Time, bool) {
	s := text(v)
	if len(s) >= 10 && s[4] == '-' {
		t, err := time.Parse("2006-01-02", s[:10])
		return t, err == nil
	}
	if len(s) == 8 {
		t, err := time.Parse("20060102", s)
		return t, err == nil
	}
	return time.Time{}, false
}
