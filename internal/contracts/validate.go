package contracts

import (
	"regexp"
	"strings"
	"time"
)

var symbolPattern = regexp.MustCompile(`^\d{6}$`)

// Pagination bounds
const (
	MaxPageSize     = 100
	DefaultPageSize = 20
)

// ValidateSymbol accepts exactly six digits
func ValidateSymbol(symbol string) error {
	if !symbolPattern.MatchString(symbol) {
		return &ValidationError{Field: "symbol", Reason: "must be 6 digits"}
	}
	return nil
}

// ParseDate parses YYYY-MM-DD
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// ParseDateRange parses optional start/end dates; blank leaves the bound open
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error

	if strings.TrimSpace(start) != "" {
		if r.From, err = ParseDate("start", start); err != nil {
			return DateRange{}, err
		}
	}
	if strings.TrimSpace(end) != "" {
		if r.To, err = ParseDate("end", end); err != nil {
			return DateRange{}, err
		}
	}

	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return DateRange{}, &ValidationError{Field: "start", Reason: "must not be after end"}
	}

	return r, nil
}

// ValidatePagination checks page >= 1 and 1 <= size <= MaxPageSize
func ValidatePagination(page, size int) error {
	if page < 1 {
		return &ValidationError{Field: "page", Reason: "must be at least 1"}
	}
	if size < 1 || size > MaxPageSize {
		return &ValidationError{Field: "page_size", Reason: "must be between 1 and 100"}
	}
	return nil
}
