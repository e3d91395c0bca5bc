package contracts

import "time"

// Quote is a real-time snapshot. Never persisted.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     *float64  `json:"price"`
	Change    *float64  `json:"change"`
	ChangePct *float64  `json:"change_pct"`
	Volume    int64     `json:"volume"`
	Amount    float64   `json:"amount"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	PrevClose float64   `json:"prev_close"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Valuation holds the latest valuation multiples. nil means unknown.
type Valuation struct {
	Symbol    string    `json:"symbol"`
	AsOf      time.Time `json:"as_of"`
	PETTM     *float64  `json:"pe_ttm"`
	PELYR     *float64  `json:"pe_lyr"`
	PB        *float64  `json:"pb"`
	PSTTM     *float64  `json:"ps_ttm"`
	MarketCap *float64  `json:"market_cap"` // yuan
}

// CompanyProfile is the descriptive part of a listing scraped from a profile page
type CompanyProfile struct {
	FullName    string
	Region      string
	ListDate    *time.Time
	ConceptTags []string
}

// SectorKind distinguishes industry boards from concept boards
type SectorKind string

const (
	SectorIndustry SectorKind = "industry"
	SectorConcept  SectorKind = "concept"
)

// Valid reports whether k is a known sector kind
func (k SectorKind) Valid() bool {
	return k == SectorIndustry || k == SectorConcept
}

// Origin tags where a lookup result came from
type Origin string

const (
	OriginStore    Origin = "store"
	OriginExternal Origin = "external"
)

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// ListingSnapshot is the live view of one listed company used to enrich
// supply-chain edges. Never persisted.
type ListingSnapshot struct {
	Ticker    string   `json:"ticker"`
	Symbol    string   `json:"symbol"`
	Market    Market   `json:"market"`
	Name      string   `json:"name"`
	Industry  string   `json:"industry"`
	MarketCap *float64 `json:"market_cap"`
	PETTM     *float64 `json:"pe_ttm"`
	Price     *float64 `json:"price"`
	ChangePct *float64 `json:"change_pct"`
	Volume    int64    `json:"volume"`
}
