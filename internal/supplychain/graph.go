package supplychain

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedData []byte

// SupplyEdge is one supplier or customer relationship
type SupplyEdge struct {
	Name         string `yaml:"name" json:"name"`
	Ticker       string `yaml:"ticker" json:"ticker,omitempty"`
	Relationship string `yaml:"relationship" json:"relationship"`
	Listed       bool   `yaml:"listed" json:"is_listed"`
	Market       string `yaml:"market" json:"market,omitempty"`
}

// Suppliers groups direct and indirect supplier edges
type Suppliers struct {
	Direct   []SupplyEdge `yaml:"direct" json:"direct"`
	Indirect []SupplyEdge `yaml:"indirect" json:"indirect"`
}

// CompanyNode is one entity of the knowledge graph
type CompanyNode struct {
	ID        string       `yaml:"id" json:"id"`
	Name      string       `yaml:"name" json:"name"`
	Aliases   []string     `yaml:"aliases" json:"aliases"`
	Suppliers Suppliers    `yaml:"suppliers" json:"suppliers"`
	Customers []SupplyEdge `yaml:"customers" json:"customers"`
}

// Suggestion maps a domain keyword to companies, used when no company is named
type Suggestion struct {
	Keyword   string   `yaml:"keyword" json:"keyword"`
	Companies []string `yaml:"companies" json:"companies"`
}

type seedFile struct {
	Companies   []CompanyNode `yaml:"companies"`
	Suggestions []Suggestion  `yaml:"suggestions"`
}

// Graph is the static supply-chain knowledge base. Immutable after construction.
// ⭐ SSOT: 공급망 지식그래프는 여기서만
type Graph struct {
	companies   []*CompanyNode
	byID        map[string]*CompanyNode
	aliasIndex  map[string]string // alias or canonical name → company id
	foldedIndex map[string]string // lower-cased alias → company id
	suggestions []Suggestion
}

// DefaultGraph builds the graph from the embedded seed data
func DefaultGraph() (*Graph, error) {
	return LoadGraph(seedData)
}

// LoadGraph parses YAML seed data
func LoadGraph(data []byte) (*Graph, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse supply chain seed: %w", err)
	}
	return NewGraph(seed.Companies, seed.Suggestions)
}

// NewGraph indexes companies. Conflicting aliases resolve by last write.
func NewGraph(companies []CompanyNode, suggestions []Suggestion) (*Graph, error) {
	g := &Graph{
		companies:   make([]*CompanyNode, 0, len(companies)),
		byID:        make(map[string]*CompanyNode, len(companies)),
		aliasIndex:  make(map[string]string),
		foldedIndex: make(map[string]string),
	}

	for i := range companies {
		c := companies[i]
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("company #%d: id and name are required", i)
		}
		if _, dup := g.byID[c.ID]; dup {
			return nil, fmt.Errorf("company %q defined twice", c.ID)
		}

		if !containsString(c.Aliases, c.Name) {
			c.Aliases = append([]string{c.Name}, c.Aliases...)
		}

		g.companies = append(g.companies, &c)
		g.byID[c.ID] = &c

		for _, alias := range c.Aliases {
			g.aliasIndex[alias] = c.ID
			g.foldedIndex[strings.ToLower(alias)] = c.ID
		}
	}

	for _, s := range suggestions {
		for _, id := range s.Companies {
			if _, ok := g.byID[id]; !ok {
				return nil, fmt.Errorf("suggestion %q: unknown company %q", s.Keyword, id)
			}
		}
	}
	g.suggestions = suggestions

	return g, nil
}

// Company returns the node with id
func (g *Graph) Company(id string) (*CompanyNode, bool) {
	c, ok := g.byID[id]
	return c, ok
}

// Companies returns every node in seed order
func (g *Graph) Companies() []*CompanyNode {
	return g.companies
}

// ResolveAlias maps an exact alias or canonical name to a company id
func (g *Graph) ResolveAlias(alias string) (string, bool) {
	id, ok := g.aliasIndex[alias]
	return id, ok
}

// Lookup finds a company by case-insensitive exact alias
func (g *Graph) Lookup(name string) (*CompanyNode, bool) {
	id, ok := g.foldedIndex[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return g.byID[id], true
}

// Suggestions returns the keyword fallback table in priority order
func (g *Graph) Suggestions() []Suggestion {
	return g.suggestions
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
