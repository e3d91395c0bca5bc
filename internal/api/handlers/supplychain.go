package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/stocklens/internal/supplychain"
	"github.com/wonny/stocklens/pkg/logger"
)

// maxScenarioLength bounds the scenario text in runes
const maxScenarioLength = 2000

// SupplyChainService is the scenario matcher used by SupplyChainHandler
type SupplyChainService interface {
	AnalyzeScenario(ctx context.Context, text string) *supplychain.AnalysisResult
	CompanySupplyChain(ctx context.Context, name string) (*supplychain.Report, bool)
	SearchSupplierByKeyword(ctx context.Context, keyword string) []supplychain.SupplierMatch
	Companies() []supplychain.CompanySummary
}

// SupplyChainHandler handles supply-chain API endpoints
type SupplyChainHandler struct {
	service SupplyChainService
	logger  *logger.Logger
}

// NewSupplyChainHandler creates a new supply-chain handler
func NewSupplyChainHandler(service SupplyChainService, log *logger.Logger) *SupplyChainHandler {
	return &SupplyChainHandler{
		service: service,
		logger:  log.Module("api"),
	}
}

// AnalyzeRequest is the body of a scenario analysis
type AnalyzeRequest struct {
	Scenario string `json:"scenario"`
}

// Analyze identifies companies in a scenario and expands their supply chains
// POST /api/supply-chain/analyze
func (h *SupplyChainHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(r, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	if strings.TrimSpace(req.Scenario) == "" {
		respondError(w, http.StatusBadRequest, "scenario is required")
		return
	}
	if len([]rune(req.Scenario)) > maxScenarioLength {
		respondError(w, http.StatusBadRequest, "scenario is too long")
		return
	}

	respondData(w, http.StatusOK, h.service.AnalyzeScenario(r.Context(), req.Scenario))
}

// GetCompany returns the supply chain of one company by name or alias
// GET /api/supply-chain/companies/{name}
func (h *SupplyChainHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	report, found := h.service.CompanySupplyChain(r.Context(), mux.Vars(r)["name"])
	if !found {
		respondData(w, http.StatusOK, nil)
		return
	}
	respondData(w, http.StatusOK, report)
}

// ListCompanies returns every company of the graph
// GET /api/supply-chain/companies
func (h *SupplyChainHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.service.Companies())
}

// SearchSuppliers finds supplier edges by name or relationship keyword
// GET /api/supply-chain/suppliers?keyword=封装
func (h *SupplyChainHandler) SearchSuppliers(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	respondData(w, http.StatusOK, h.service.SearchSupplierByKeyword(r.Context(), keyword))
}
