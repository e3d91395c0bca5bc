package contracts

import (
	"strings"
	"time"
)

// Market is the exchange group a symbol trades on
type Market string

const (
	MarketShanghai Market = "SH"
	MarketShenzhen Market = "SZ"
	MarketBeijing  Market = "BJ"
)

// MaxConceptTags caps how many concept tags a record keeps
const MaxConceptTags = 10

// SymbolRecord is the identity and classification of one security
// ⭐ SSOT: 종목 기본정보 타입은 여기서만
type SymbolRecord struct {
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Industry    string     `json:"industry"`
	ConceptTags []string   `json:"concept_tags"`
	Region      string     `json:"region"`
	Market      Market     `json:"market"`
	ListDate    *time.Time `json:"list_date,omitempty"`
}

// HasIndustry reports whether an industry tag is present
func (r *SymbolRecord) HasIndustry() bool {
	return strings.TrimSpace(r.Industry) != ""
}

// Normalize derives a missing market and caps concept tags
func (r *SymbolRecord) Normalize() {
	if r.Market == "" {
		r.Market = MarketOf(r.Symbol)
	}
	r.ConceptTags = NormalizeConceptTags(r.ConceptTags, MaxConceptTags)
}

// MarketOf derives the exchange group from the symbol prefix
func MarketOf(symbol string) Market {
	switch {
	case strings.HasPrefix(symbol, "60"), strings.HasPrefix(symbol, "68"), strings.HasPrefix(symbol, "90"):
		return MarketShanghai
	case strings.HasPrefix(symbol, "00"), strings.HasPrefix(symbol, "30"), strings.HasPrefix(symbol, "20"):
		return MarketShenzhen
	case strings.HasPrefix(symbol, "4"), strings.HasPrefix(symbol, "8"), strings.HasPrefix(symbol, "92"):
		return MarketBeijing
	default:
		return ""
	}
}

// NormalizeConceptTags trims, drops blanks and duplicates (first occurrence wins)
// and keeps at most limit tags. limit <= 0 means no cap.
func NormalizeConceptTags(tags []string, limit int) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)

		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out
}

// ParseTicker splits an exchange-qualified ticker such as "600584.SH".
// ok is false for anything that is not a 6-digit mainland listing.
func ParseTicker(ticker string) (symbol string, market Market, ok bool) {
	code, suffix, found := strings.Cut(strings.TrimSpace(ticker), ".")
	if !found || !symbolPattern.MatchString(code) {
		return "", "", false
	}

	switch m := Market(strings.ToUpper(suffix)); m {
	case MarketShanghai, MarketShenzhen, MarketBeijing:
		return code, m, true
	default:
		return "", "", false
	}
}
