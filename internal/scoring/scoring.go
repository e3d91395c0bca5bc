package scoring

import (
	"math"

	"github.com/wonny/stocklens/internal/contracts"
)

// ⭐ SSOT: 투자/리스크 점수 규칙표는 여기서만

// Rating is the investment rating band
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

// RiskLevel is the risk band derived from triggered flags
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Fixed rule components
const (
	GrowthScore    = 15
	TechnicalScore = 10
	IndustryScore  = 10

	highPELimit     = 50.0
	dailyMoveLimit  = 7.0
	maxValuationPts = 30
)

// Risk factor identifiers
const (
	FactorHighValuation = "high_valuation"
	FactorVolatility    = "high_volatility"
	FactorIndustry      = "industry_exposure"
)

// Input is the integrated reference + quote + valuation view scored by the engine.
// nil pointers mean the value is unknown.
type Input struct {
	Symbol    string   `json:"symbol"`
	Industry  string   `json:"industry"`
	PETTM     *float64 `json:"pe_ttm"`
	ChangePct *float64 `json:"change_pct"`
}

// InputFrom merges the three lookups. quote and valuation may be nil.
func InputFrom(record *contracts.SymbolRecord, quote *contracts.Quote, valuation *contracts.Valuation) Input {
	in := Input{}
	if record != nil {
		in.Symbol = record.Symbol
		if record.HasIndustry() {
			in.Industry = record.Industry
		}
	}
	if quote != nil {
		in.ChangePct = quote.ChangePct
	}
	if valuation != nil {
		in.PETTM = valuation.PETTM
	}
	return in
}

// InvestmentScore is the sum of four components and its rating band
type InvestmentScore struct {
	Total     int    `json:"total"`
	Valuation int    `json:"valuation"`
	Growth    int    `json:"growth"`
	Technical int    `json:"technical"`
	Industry  int    `json:"industry"`
	Rating    Rating `json:"rating"`
}

// RiskAssessment counts triggered risk flags
type RiskAssessment struct {
	Score   int       `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors"`
}

// ScoreInvestment applies the fixed weighted-rule table
func ScoreInvestment(in Input) InvestmentScore {
	s := InvestmentScore{
		Valuation: ValuationScore(in.PETTM),
		Growth:    GrowthScore,
		Technical: TechnicalScore,
	}
	if in.Industry != "" {
		s.Industry = IndustryScore
	}

	s.Total = s.Valuation + s.Growth + s.Technical + s.Industry
	s.Rating = RatingFor(s.Total)
	return s
}

// ValuationScore bands trailing P/E: (0,10) → 30, [10,20) → 20, [20,30) → 10, otherwise 0.
// Unknown or non-positive P/E scores 0.
func ValuationScore(pe *float64) int {
	if pe == nil || math.IsNaN(*pe) || *pe <= 0 {
		return 0
	}

	switch v := *pe; {
	case v < 10:
		return maxValuationPts
	case v < 20:
		return 20
	case v < 30:
		return 10
	default:
		return 0
	}
}

// RatingFor maps a total score to its band
func RatingFor(total int) Rating {
	switch {
	case total >= 80:
		return RatingExcellent
	case total >= 60:
		return RatingGood
	case total >= 40:
		return RatingFair
	default:
		return RatingPoor
	}
}

// ScoreRisk counts triggered flags: P/E > 50, |change%| > 7, industry tag present
func ScoreRisk(in Input) RiskAssessment {
	factors := make([]string, 0, 3)

	if in.PETTM != nil && *in.PETTM > highPELimit {
		factors = append(factors, FactorHighValuation)
	}
	if in.ChangePct != nil && math.Abs(*in.ChangePct) > dailyMoveLimit {
		factors = append(factors, FactorVolatility)
	}
	if in.Industry != "" {
		factors = append(factors, FactorIndustry)
	}

	return RiskAssessment{
		Score:   len(factors),
		Level:   LevelFor(len(factors)),
		Factors: factors,
	}
}

// LevelFor maps a flag count to its risk level
func LevelFor(flags int) RiskLevel {
	switch {
	case flags >= 3:
		return RiskHigh
	case flags >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}
