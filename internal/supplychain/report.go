package supplychain

import (
	"context"

	"github.com/wonny/stocklens/internal/contracts"
)

// Relationship kinds
const (
	RelationshipDirect   = "direct"
	RelationshipIndirect = "indirect"
)

// Edge roles within a report
const (
	RoleDirectSupplier   = "direct_supplier"
	RoleIndirectSupplier = "indirect_supplier"
	RoleCustomer         = "customer"
)

// RoleFor maps a supplier relationship kind to its report role
func RoleFor(kind string) string {
	if kind == RelationshipIndirect {
		return RoleIndirectSupplier
	}
	return RoleDirectSupplier
}

// EdgeReport is an edge with optional live data. Enrichment never changes the graph.
type EdgeReport struct {
	SupplyEdge
	Role      string                     `json:"role"`
	Data      *contracts.ListingSnapshot `json:"data,omitempty"`
	DataError string                     `json:"data_error,omitempty"`
}

// Report is the supply-chain expansion of one company
type Report struct {
	CompanyID         string       `json:"company_id"`
	CompanyName       string       `json:"company_name"`
	DirectSuppliers   []EdgeReport `json:"direct_suppliers"`
	IndirectSuppliers []EdgeReport `json:"indirect_suppliers"`
	Customers         []EdgeReport `json:"customers"`
	ListedCompanies   []EdgeReport `json:"listed_companies"`
	UnlistedCompanies []EdgeReport `json:"unlisted_companies"`
}

func (m *Matcher) buildReport(ctx context.Context, node *CompanyNode, enr *enrichment) *Report {
	r := &Report{
		CompanyID:         node.ID,
		CompanyName:       node.Name,
		DirectSuppliers:   make([]EdgeReport, 0, len(node.Suppliers.Direct)),
		IndirectSuppliers: make([]EdgeReport, 0, len(node.Suppliers.Indirect)),
		Customers:         make([]EdgeReport, 0, len(node.Customers)),
		ListedCompanies:   make([]EdgeReport, 0),
		UnlistedCompanies: make([]EdgeReport, 0),
	}

	collect := func(edges []SupplyEdge, role string, dest *[]EdgeReport) {
		for _, e := range edges {
			er := enr.edge(ctx, e, role)
			*dest = append(*dest, er)
			if e.Listed {
				r.ListedCompanies = append(r.ListedCompanies, er)
			} else {
				r.UnlistedCompanies = append(r.UnlistedCompanies, er)
			}
		}
	}

	collect(node.Suppliers.Direct, RoleDirectSupplier, &r.DirectSuppliers)
	collect(node.Suppliers.Indirect, RoleIndirectSupplier, &r.IndirectSuppliers)
	collect(node.Customers, RoleCustomer, &r.Customers)

	return r
}

// enrichment resolves each ticker at most once per request
type enrichment struct {
	enricher Enricher
	cache    map[string]enriched
}

type enriched struct {
	data *contracts.ListingSnapshot
	err  string
}

func (m *Matcher) newEnrichment() *enrichment {
	return &enrichment{enricher: m.enricher, cache: make(map[string]enriched)}
}

func (e *enrichment) edge(ctx context.Context, edge SupplyEdge, role string) EdgeReport {
	er := EdgeReport{SupplyEdge: edge, Role: role}
	if e.enricher == nil || !edge.Listed || edge.Ticker == "" {
		return er
	}

	hit, ok := e.cache[edge.Ticker]
	if !ok {
		data, err := e.enricher.Snapshot(ctx, edge.Ticker)
		hit = enriched{data: data}
		if err != nil {
			hit = enriched{err: err.Error()}
		}
		e.cache[edge.Ticker] = hit
	}

	er.Data = hit.data
	er.DataError = hit.err
	return er
}
