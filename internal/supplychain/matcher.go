package supplychain

import (
	"context"
	"sort"
	"strings"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/logger"
)

const confidencePerMention = 0.3

// Enricher resolves live listing data for an exchange-qualified ticker
type Enricher interface {
	Snapshot(ctx context.Context, ticker string) (*contracts.ListingSnapshot, error)
}

// Matcher identifies companies in free text and expands them into supply-chain reports
type Matcher struct {
	graph     *Graph
	extractor KeywordExtractor
	enricher  Enricher
	logger    *logger.Logger
}

// NewMatcher creates a matcher. A nil extractor disables generic keyword extraction.
func NewMatcher(graph *Graph, extractor KeywordExtractor, log *logger.Logger) *Matcher {
	if extractor == nil {
		extractor = NopExtractor{}
	}
	return &Matcher{
		graph:     graph,
		extractor: extractor,
		logger:    log.Module("supplychain"),
	}
}

// WithEnricher enables live data on listed edges
func (m *Matcher) WithEnricher(e Enricher) *Matcher {
	m.enricher = e
	return m
}

// MatchCandidate is one company identified in a scenario
type MatchCandidate struct {
	CompanyID      string  `json:"company_id"`
	Name           string  `json:"name"`
	MatchedKeyword string  `json:"matched_keyword"`
	Confidence     float64 `json:"confidence"`
}

// SuggestedCompany is a fallback hit from the keyword table
type SuggestedCompany struct {
	CompanyID      string `json:"company_id"`
	Name           string `json:"name"`
	MatchedKeyword string `json:"matched_keyword"`
}

// AnalysisResult is the outcome of AnalyzeScenario
type AnalysisResult struct {
	Scenario    string             `json:"scenario"`
	Keywords    []string           `json:"keywords"`
	Detected    []MatchCandidate   `json:"detected_companies"`
	Reports     []*Report          `json:"supply_chain_analysis"`
	Suggestions []SuggestedCompany `json:"suggestions,omitempty"`
}

// AnalyzeScenario never fails: unmatched text yields suggestions or an empty result
func (m *Matcher) AnalyzeScenario(ctx context.Context, text string) *AnalysisResult {
	res := &AnalysisResult{
		Scenario: text,
		Detected: []MatchCandidate{},
		Reports:  []*Report{},
	}
	if strings.TrimSpace(text) == "" {
		res.Keywords = []string{}
		return res
	}

	res.Keywords = m.ExtractKeywords(text)
	res.Detected = m.Identify(text, res.Keywords)

	if len(res.Detected) == 0 {
		res.Suggestions = m.suggest(res.Keywords)
		m.logger.WithFields(map[string]interface{}{
			"keywords":    len(res.Keywords),
			"suggestions": len(res.Suggestions),
		}).Debug("No company identified, falling back to suggestions")
		return res
	}

	enr := m.newEnrichment()
	for _, c := range res.Detected {
		node, _ := m.graph.Company(c.CompanyID)
		res.Reports = append(res.Reports, m.buildReport(ctx, node, enr))
	}

	m.logger.WithFields(map[string]interface{}{
		"detected": len(res.Detected),
		"keywords": len(res.Keywords),
	}).Info("Scenario analyzed")

	return res
}

// ExtractKeywords unions generic keywords, domain terms and aliases present in text.
// Order is discovery order; duplicates are dropped.
func (m *Matcher) ExtractKeywords(text string) []string {
	out := make([]string, 0, DefaultTopK)
	seen := make(map[string]struct{})
	add := func(kw string) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return
		}
		if _, dup := seen[kw]; dup {
			return
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}

	for _, kw := range m.extractor.Extract(text, DefaultTopK) {
		add(kw)
	}
	for _, kw := range domainTerms(text) {
		add(kw)
	}
	for _, c := range m.graph.Companies() {
		for _, alias := range c.Aliases {
			if strings.Contains(text, alias) {
				add(alias)
			}
		}
	}
	return out
}

// Identify emits one candidate per company: first for aliases literally in text,
// then for keywords equal to a known alias. Sorted by confidence, ties in discovery order.
func (m *Matcher) Identify(text string, keywords []string) []MatchCandidate {
	out := make([]MatchCandidate, 0)
	seen := make(map[string]struct{})
	add := func(c *CompanyNode, keyword string) {
		if _, dup := seen[c.ID]; dup {
			return
		}
		seen[c.ID] = struct{}{}
		out = append(out, MatchCandidate{
			CompanyID:      c.ID,
			Name:           c.Name,
			MatchedKeyword: keyword,
			Confidence:     Confidence(text, c.Aliases),
		})
	}

	for _, c := range m.graph.Companies() {
		for _, alias := range c.Aliases {
			if strings.Contains(text, alias) {
				add(c, alias)
				break
			}
		}
	}

	for _, kw := range keywords {
		if id, ok := m.graph.ResolveAlias(kw); ok {
			node, _ := m.graph.Company(id)
			add(node, kw)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Confidence is min(1, 0.3 × case-insensitive mentions summed over aliases)
func Confidence(text string, aliases []string) float64 {
	lower := strings.ToLower(text)

	mentions := 0
	for _, alias := range aliases {
		if alias == "" {
			continue
		}
		mentions += strings.Count(lower, strings.ToLower(alias))
	}

	c := confidencePerMention * float64(mentions)
	if c > 1 {
		return 1
	}
	return c
}

// suggest maps keywords through the fallback table, case-insensitively
func (m *Matcher) suggest(keywords []string) []SuggestedCompany {
	out := make([]SuggestedCompany, 0)
	seen := make(map[string]struct{})

	for _, kw := range keywords {
		for _, s := range m.graph.Suggestions() {
			if !strings.EqualFold(s.Keyword, kw) {
				continue
			}
			for _, id := range s.Companies {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				node, _ := m.graph.Company(id)
				out = append(out, SuggestedCompany{CompanyID: id, Name: node.Name, MatchedKeyword: kw})
			}
		}
	}
	return out
}

// CompanySupplyChain looks a company up by exact case-insensitive alias.
// found is false for unknown names.
func (m *Matcher) CompanySupplyChain(ctx context.Context, name string) (report *Report, found bool) {
	node, ok := m.graph.Lookup(name)
	if !ok {
		return nil, false
	}
	return m.buildReport(ctx, node, m.newEnrichment()), true
}

// SupplierMatch is a supplier edge found by keyword
type SupplierMatch struct {
	EdgeReport
	SupplyChainOf    string `json:"supply_chain_of"`
	CompanyID        string `json:"company_id"`
	RelationshipType string `json:"relationship_type"` // direct, indirect
}

// SearchSupplierByKeyword scans every supplier edge for a case-insensitive substring
// of its name or relationship label. A blank keyword matches nothing.
func (m *Matcher) SearchSupplierByKeyword(ctx context.Context, keyword string) []SupplierMatch {
	out := make([]SupplierMatch, 0)
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return out
	}

	enr := m.newEnrichment()
	scan := func(c *CompanyNode, edges []SupplyEdge, kind string) {
		for _, e := range edges {
			if !strings.Contains(strings.ToLower(e.Name), kw) && !strings.Contains(strings.ToLower(e.Relationship), kw) {
				continue
			}
			out = append(out, SupplierMatch{
				EdgeReport:       enr.edge(ctx, e, RoleFor(kind)),
				SupplyChainOf:    c.Name,
				CompanyID:        c.ID,
				RelationshipType: kind,
			})
		}
	}

	for _, c := range m.graph.Companies() {
		scan(c, c.Suppliers.Direct, RelationshipDirect)
		scan(c, c.Suppliers.Indirect, RelationshipIndirect)
	}
	return out
}

// CompanySummary is a graph node without its edges
type CompanySummary struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Aliases           []string `json:"aliases"`
	DirectSuppliers   int      `json:"direct_suppliers"`
	IndirectSuppliers int      `json:"indirect_suppliers"`
	Customers         int      `json:"customers"`
}

// Companies lists graph nodes in seed order
func (m *Matcher) Companies() []CompanySummary {
	out := make([]CompanySummary, 0, len(m.graph.Companies()))
	for _, c := range m.graph.Companies() {
		out = append(out, CompanySummary{
			ID:                c.ID,
			Name:              c.Name,
			Aliases:           c.Aliases,
			DirectSuppliers:   len(c.Suppliers.Direct),
			IndirectSuppliers: len(c.Suppliers.Indirect),
			Customers:         len(c.Customers),
		})
	}
	return out
}
