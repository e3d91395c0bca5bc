package supplychain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/logger"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	g, err := DefaultGraph()
	require.NoError(t, err)
	return NewMatcher(g, nil, logger.Nop())
}

type stubExtractor []string

func (s stubExtractor) Extract(string, int) []string { return s }

type stubEnricher struct {
	calls map[string]int
}

func (s *stubEnricher) Snapshot(_ context.Context, ticker string) (*contracts.ListingSnapshot, error) {
	s.calls[ticker]++
	if _, _, ok := contracts.ParseTicker(ticker); !ok {
		return nil, &contracts.ValidationError{Field: "ticker", Reason: "not a mainland A-share listing"}
	}
	if ticker == "002156.SZ" {
		return nil, errors.New("fetch quote 002156: upstream 503")
	}
	return &contracts.ListingSnapshot{Ticker: ticker, Price: contracts.Float(12.5)}, nil
}

func TestDefaultGraph(t *testing.T) {
	g, err := DefaultGraph()
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, c := range g.Companies() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"nvidia", "google", "apple", "tesla"}, ids)

	id, ok := g.ResolveAlias("NVIDIA")
	assert.True(t, ok)
	assert.Equal(t, "nvidia", id)

	node, ok := g.Lookup("  alphabet inc. ")
	require.True(t, ok)
	assert.Equal(t, "google", node.ID)

	_, ok = g.Lookup("alpha")
	assert.False(t, ok, "lookup is exact, not substring")
}

func TestNewGraph_AliasConflictLastWriteWins(t *testing.T) {
	g, err := NewGraph([]CompanyNode{
		{ID: "a", Name: "甲", Aliases: []string{"shared"}},
		{ID: "b", Name: "乙", Aliases: []string{"shared"}},
	}, nil)
	require.NoError(t, err)

	id, ok := g.ResolveAlias("shared")
	require.True(t, ok)
	assert.Equal(t, "b", id)

	// canonical name is always an alias
	id, _ = g.ResolveAlias("甲")
	assert.Equal(t, "a", id)
}

func TestNewGraph_Invalid(t *testing.T) {
	_, err := NewGraph([]CompanyNode{{ID: "a", Name: "甲"}, {ID: "a", Name: "乙"}}, nil)
	assert.Error(t, err)

	_, err = NewGraph([]CompanyNode{{ID: "a"}}, nil)
	assert.Error(t, err)

	_, err = NewGraph([]CompanyNode{{ID: "a", Name: "甲"}}, []Suggestion{{Keyword: "x", Companies: []string{"zzz"}}})
	assert.Error(t, err)

	_, err = LoadGraph([]byte("companies: [unterminated"))
	assert.Error(t, err)
}

func TestAnalyzeScenario_NvidiaGPU(t *testing.T) {
	m := newTestMatcher(t)

	res := m.AnalyzeScenario(context.Background(), "英伟达发布最新的GPU芯片")

	require.NotEmpty(t, res.Detected)
	assert.Equal(t, "nvidia", res.Detected[0].CompanyID)
	assert.Equal(t, "英伟达", res.Detected[0].MatchedKeyword)
	assert.InDelta(t, 0.3, res.Detected[0].Confidence, 1e-9)
	assert.Contains(t, res.Keywords, "GPU")
	assert.Contains(t, res.Keywords, "芯片")
	assert.Empty(t, res.Suggestions)

	require.Len(t, res.Reports, 1)
	report := res.Reports[0]
	require.NotEmpty(t, report.DirectSuppliers)

	foundry := false
	for _, s := range report.DirectSuppliers {
		if strings.Contains(s.Relationship, "芯片代工") {
			foundry = true
		}
	}
	assert.True(t, foundry, "direct suppliers include a foundry relationship")
	assert.Len(t, report.ListedCompanies, 16)
	assert.Empty(t, report.UnlistedCompanies)
}

func TestAnalyzeScenario_DeduplicatesAndSorts(t *testing.T) {
	m := NewMatcher(mustGraph(t), stubExtractor{"Tesla", "特斯拉", "发布"}, logger.Nop())

	text := "苹果和特斯拉合作，特斯拉汽车与Tesla工厂"
	res := m.AnalyzeScenario(context.Background(), text)

	ids := make([]string, 0)
	for _, d := range res.Detected {
		ids = append(ids, d.CompanyID)
	}
	assert.Equal(t, []string{"tesla", "apple"}, ids)

	// 特斯拉 ×2 (one inside 特斯拉汽车), 特斯拉汽车 ×1, tesla ×1
	assert.InDelta(t, 1.0, res.Detected[0].Confidence, 1e-9)
	assert.InDelta(t, 0.3, res.Detected[1].Confidence, 1e-9)
	assert.Len(t, res.Reports, 2)
}

func TestAnalyzeScenario_KeywordOnlyMatch(t *testing.T) {
	// "nvidia" is not a literal alias, but the extractor surfaces the canonical alias
	m := NewMatcher(mustGraph(t), stubExtractor{"NVIDIA"}, logger.Nop())

	res := m.AnalyzeScenario(context.Background(), "nvidia earnings")
	require.Len(t, res.Detected, 1)
	assert.Equal(t, "nvidia", res.Detected[0].CompanyID)
	assert.Equal(t, "NVIDIA", res.Detected[0].MatchedKeyword)
	assert.InDelta(t, 0.3, res.Detected[0].Confidence, 1e-9)
}

func TestAnalyzeScenario_Suggestions(t *testing.T) {
	m := newTestMatcher(t)

	res := m.AnalyzeScenario(context.Background(), "新一代电池和自动驾驶芯片")
	assert.Empty(t, res.Detected)
	assert.Empty(t, res.Reports)

	ids := make([]string, 0)
	for _, s := range res.Suggestions {
		ids = append(ids, s.CompanyID)
	}
	// 芯片 → nvidia, google, apple; 电池 → tesla; 自动驾驶 adds nothing new
	assert.Equal(t, []string{"nvidia", "google", "apple", "tesla"}, ids)
	assert.Equal(t, "芯片", res.Suggestions[0].MatchedKeyword)
}

func TestAnalyzeScenario_EmptyAndNoMatch(t *testing.T) {
	m := newTestMatcher(t)

	res := m.AnalyzeScenario(context.Background(), "   ")
	assert.Empty(t, res.Detected)
	assert.Empty(t, res.Keywords)

	res = m.AnalyzeScenario(context.Background(), "今天天气很好")
	assert.Empty(t, res.Detected)
	assert.Empty(t, res.Suggestions)
}

func TestConfidence_MonotonicAndClamped(t *testing.T) {
	aliases := []string{"Apple", "苹果", "苹果公司"}

	prev := 0.0
	for n := 1; n <= 6; n++ {
		c := Confidence(strings.Repeat("apple ", n), aliases)
		assert.GreaterOrEqual(t, c, prev)
		assert.LessOrEqual(t, c, 1.0)
		assert.GreaterOrEqual(t, c, 0.0)
		prev = c
	}
	assert.Equal(t, 1.0, prev)
	assert.Equal(t, 0.0, Confidence("nothing here", aliases))
}

func TestCompanySupplyChain(t *testing.T) {
	enricher := &stubEnricher{calls: make(map[string]int)}
	m := newTestMatcher(t).WithEnricher(enricher)

	report, found := m.CompanySupplyChain(context.Background(), "apple")
	require.True(t, found)
	assert.Equal(t, "apple", report.CompanyID)
	assert.Len(t, report.DirectSuppliers, 7)
	assert.Len(t, report.IndirectSuppliers, 6)
	assert.Len(t, report.UnlistedCompanies, 1)

	// mainland listings are enriched, foreign ones carry an error but stay in the report
	for _, s := range report.IndirectSuppliers {
		assert.NotNil(t, s.Data, s.Name)
		assert.Empty(t, s.DataError)
	}
	tsmc := report.DirectSuppliers[0]
	assert.Equal(t, "台积电", tsmc.Name)
	assert.Nil(t, tsmc.Data)
	assert.NotEmpty(t, tsmc.DataError)

	// unlisted customers are never enriched
	assert.Equal(t, RoleCustomer, report.Customers[0].Role)
	assert.Empty(t, report.Customers[0].DataError)

	_, found = m.CompanySupplyChain(context.Background(), "苹")
	assert.False(t, found)
}

func TestEnrichmentFailureKeepsEdge(t *testing.T) {
	enricher := &stubEnricher{calls: make(map[string]int)}
	m := newTestMatcher(t).WithEnricher(enricher)

	report, found := m.CompanySupplyChain(context.Background(), "NVIDIA")
	require.True(t, found)

	var tongfu *EdgeReport
	for i := range report.IndirectSuppliers {
		if report.IndirectSuppliers[i].Ticker == "002156.SZ" {
			tongfu = &report.IndirectSuppliers[i]
		}
	}
	require.NotNil(t, tongfu)
	assert.Contains(t, tongfu.DataError, "upstream 503")
	assert.Len(t, report.IndirectSuppliers, 6)
}

func TestEnrichmentOncePerTicker(t *testing.T) {
	enricher := &stubEnricher{calls: make(map[string]int)}
	m := newTestMatcher(t).WithEnricher(enricher)

	// 长电科技 appears in both nvidia and google chains
	m.AnalyzeScenario(context.Background(), "英伟达与谷歌")
	assert.Equal(t, 1, enricher.calls["600584.SH"])
}

func TestSearchSupplierByKeyword(t *testing.T) {
	m := newTestMatcher(t)

	matches := m.SearchSupplierByKeyword(context.Background(), "封装")
	require.Len(t, matches, 5)
	assert.Equal(t, "英伟达", matches[0].SupplyChainOf)
	assert.Equal(t, RelationshipIndirect, matches[0].RelationshipType)
	assert.Equal(t, RoleIndirectSupplier, matches[0].Role)
	assert.Equal(t, "谷歌", matches[4].SupplyChainOf)

	matches = m.SearchSupplierByKeyword(context.Background(), "lg")
	require.Len(t, matches, 2)
	assert.Equal(t, "LG Display", matches[0].Name)
	assert.Equal(t, "LG新能源", matches[1].Name)
	assert.Equal(t, RelationshipDirect, matches[1].RelationshipType)

	// customers are not searched
	assert.Empty(t, m.SearchSupplierByKeyword(context.Background(), "消费者"))
	assert.Empty(t, m.SearchSupplierByKeyword(context.Background(), "  "))
}

func TestCompanies(t *testing.T) {
	m := newTestMatcher(t)

	list := m.Companies()
	require.Len(t, list, 4)
	assert.Equal(t, "nvidia", list[0].ID)
	assert.Equal(t, 7, list[0].DirectSuppliers)
	assert.Equal(t, 6, list[0].IndirectSuppliers)
	assert.Equal(t, 3, list[0].Customers)
}

func TestDomainTerms(t *testing.T) {
	terms := domainTerms("新的ai芯片用于数据中心和5G网络，AI训练")
	assert.Equal(t, []string{"ai", "芯片", "AI", "数据中心", "5G", "网络"}, terms)
}

func mustGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := DefaultGraph()
	require.NoError(t, err)
	return g
}

func TestGseExtractor(t *testing.T) {
	if testing.Short() {
		t.Skip("loading the segmenter dictionary is slow")
	}

	ext, err := NewGseExtractor()
	require.NoError(t, err)

	kws := ext.Extract("英伟达发布最新的GPU芯片", DefaultTopK)
	require.NotEmpty(t, kws)
	assert.LessOrEqual(t, len(kws), DefaultTopK)
	for _, kw := range kws {
		assert.NotEmpty(t, strings.TrimSpace(kw))
	}

	t.Run("scenario end to end", func(t *testing.T) {
		m := NewMatcher(mustGraph(t), ext, logger.Nop())

		res := m.AnalyzeScenario(context.Background(), "英伟达发布最新的GPU芯片")
		require.Len(t, res.Detected, 1)
		assert.Equal(t, "nvidia", res.Detected[0].CompanyID)
		assert.Equal(t, "英伟达", res.Detected[0].MatchedKeyword)
		assert.Contains(t, res.Keywords, "GPU")
		assert.Contains(t, res.Keywords, "芯片")
		for _, kw := range kws {
			assert.Contains(t, res.Keywords, strings.TrimSpace(kw), "extracted keywords are kept")
		}
		require.Len(t, res.Reports, 1)
		assert.Len(t, res.Reports[0].ListedCompanies, 16)
	})
}
