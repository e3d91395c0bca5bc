package stockdata

import (
	"context"
	"errors"

	"github.com/wonny/stocklens/internal/contracts"
)

// SectorCount is the member count of one sector a symbol belongs to
type SectorCount struct {
	Name        string               `json:"name"`
	Kind        contracts.SectorKind `json:"kind"`
	MemberCount int                  `json:"member_count"`
	Error       string               `json:"error,omitempty"`
}

// SectorMembership lists the industry and up to five concept sectors of a symbol
type SectorMembership struct {
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name"`
	Origin   contracts.Origin `json:"source"`
	Industry *SectorCount     `json:"industry,omitempty"`
	Concepts []SectorCount    `json:"concepts"`
}

// GetSectorMembership resolves the record through the cache-aside path, then counts
// members of each sector at the source. Counts are read-through and never stored.
// A failed sector keeps its error; concepts with no members are omitted.
func (s *Service) GetSectorMembership(ctx context.Context, symbol string) (*SectorMembership, error) {
	res, err := s.GetSymbolRecord(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rec := res.Record

	out := &SectorMembership{
		Symbol:   rec.Symbol,
		Name:     rec.Name,
		Origin:   res.Origin,
		Concepts: make([]SectorCount, 0, maxSectorConcepts),
	}

	if rec.HasIndustry() {
		c := s.countMembers(ctx, rec.Industry, contracts.SectorIndustry)
		out.Industry = &c
	}

	concepts := rec.ConceptTags
	if len(concepts) > maxSectorConcepts {
		concepts = concepts[:maxSectorConcepts]
	}
	for _, name := range concepts {
		c := s.countMembers(ctx, name, contracts.SectorConcept)
		if c.Error == "" && c.MemberCount == 0 {
			continue
		}
		out.Concepts = append(out.Concepts, c)
	}

	return out, nil
}

func (s *Service) countMembers(ctx context.Context, name string, kind contracts.SectorKind) SectorCount {
	c := SectorCount{Name: name, Kind: kind}

	members, err := s.sectorMembers(ctx, name, kind)
	if errors.Is(err, contracts.ErrNotFound) {
		return c
	}
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"sector": name,
			"kind":   kind,
		}).Warn("Failed to count sector members")
		c.Error = err.Error()
		return c
	}

	c.MemberCount = len(members)
	return c
}

func (s *Service) sectorMembers(ctx context.Context, name string, kind contracts.SectorKind) ([]contracts.SymbolRecord, error) {
	fetchCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	members, err := s.source.FetchSectorMembers(fetchCtx, name, kind)
	if err != nil {
		return nil, sourceErr("fetch sector members", name, err)
	}
	return members, nil
}
