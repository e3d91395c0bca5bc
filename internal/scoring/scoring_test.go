package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/stocklens/internal/contracts"
)

func TestValuationScoreBands(t *testing.T) {
	tests := []struct {
		name string
		pe   *float64
		want int
	}{
		{"unknown", nil, 0},
		{"negative", contracts.Float(-5), 0},
		{"zero", contracts.Float(0), 0},
		{"just below 10", contracts.Float(9.99), 30},
		{"exactly 10", contracts.Float(10.0), 20},
		{"just below 20", contracts.Float(19.99), 20},
		{"exactly 20", contracts.Float(20.0), 10},
		{"exactly 30", contracts.Float(30.0), 0},
		{"very high", contracts.Float(120), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuationScore(tt.pe))
		})
	}
}

func TestScoreInvestment(t *testing.T) {
	t.Run("cheap with industry", func(t *testing.T) {
		s := ScoreInvestment(Input{Industry: "银行", PETTM: contracts.Float(5.2)})
		assert.Equal(t, 30, s.Valuation)
		assert.Equal(t, GrowthScore, s.Growth)
		assert.Equal(t, TechnicalScore, s.Technical)
		assert.Equal(t, IndustryScore, s.Industry)
		assert.Equal(t, 65, s.Total)
		assert.Equal(t, RatingGood, s.Rating)
	})

	t.Run("unknown everything", func(t *testing.T) {
		s := ScoreInvestment(Input{})
		assert.Equal(t, 25, s.Total)
		assert.Equal(t, RatingPoor, s.Rating)
	})

	t.Run("mid pe with industry", func(t *testing.T) {
		s := ScoreInvestment(Input{Industry: "半导体", PETTM: contracts.Float(25)})
		assert.Equal(t, 45, s.Total)
		assert.Equal(t, RatingFair, s.Rating)
	})
}

func TestRatingFor(t *testing.T) {
	assert.Equal(t, RatingExcellent, RatingFor(80))
	assert.Equal(t, RatingGood, RatingFor(79))
	assert.Equal(t, RatingGood, RatingFor(60))
	assert.Equal(t, RatingFair, RatingFor(40))
	assert.Equal(t, RatingPoor, RatingFor(39))
}

func TestScoreRisk(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		score   int
		level   RiskLevel
		factors []string
	}{
		{
			name:    "no flags",
			in:      Input{PETTM: contracts.Float(12), ChangePct: contracts.Float(1.5)},
			score:   0,
			level:   RiskLow,
			factors: []string{},
		},
		{
			name:    "industry only",
			in:      Input{Industry: "白酒"},
			score:   1,
			level:   RiskMedium,
			factors: []string{FactorIndustry},
		},
		{
			name:    "pe and drop",
			in:      Input{PETTM: contracts.Float(50.01), ChangePct: contracts.Float(-7.5)},
			score:   2,
			level:   RiskMedium,
			factors: []string{FactorHighValuation, FactorVolatility},
		},
		{
			name:    "boundaries not triggered",
			in:      Input{PETTM: contracts.Float(50), ChangePct: contracts.Float(7)},
			score:   0,
			level:   RiskLow,
			factors: []string{},
		},
		{
			name:    "all flags",
			in:      Input{Industry: "汽车整车", PETTM: contracts.Float(80), ChangePct: contracts.Float(10)},
			score:   3,
			level:   RiskHigh,
			factors: []string{FactorHighValuation, FactorVolatility, FactorIndustry},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ScoreRisk(tt.in)
			assert.Equal(t, tt.score, r.Score)
			assert.Equal(t, tt.level, r.Level)
			assert.Equal(t, tt.factors, r.Factors)
		})
	}
}

func TestInputFrom(t *testing.T) {
	rec := &contracts.SymbolRecord{Symbol: "600519", Industry: "  "}
	quote := &contracts.Quote{ChangePct: contracts.Float(-1.2)}
	val := &contracts.Valuation{PETTM: contracts.Float(28.4)}

	in := InputFrom(rec, quote, val)
	assert.Equal(t, "600519", in.Symbol)
	assert.Empty(t, in.Industry)
	assert.InDelta(t, -1.2, *in.ChangePct, 1e-9)
	assert.InDelta(t, 28.4, *in.PETTM, 1e-9)

	in = InputFrom(rec, nil, nil)
	assert.Nil(t, in.ChangePct)
	assert.Nil(t, in.PETTM)
}
