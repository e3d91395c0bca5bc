package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stocklens/internal/supplychain"
	"github.com/wonny/stocklens/pkg/logger"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "종목 / 공급망 분석",
	Long: `종목 점수와 공급망 관계를 분석합니다.

Subcommands:
  scenario [text]    - 시나리오 텍스트에서 회사를 찾아 공급망 전개
  company [name]     - 회사 이름/별칭으로 공급망 조회
  supplier [keyword] - 키워드로 공급사 검색
  stock [symbol]     - 종목 투자/리스크 점수

--offline 은 저장소와 외부 소스 없이 지식그래프만 사용합니다 (stock 제외).

Example:
  go run ./cmd/stocklens analyze scenario "英伟达发布最新的GPU芯片"
  go run ./cmd/stocklens analyze company apple --offline
  go run ./cmd/stocklens analyze supplier 封装 --json
  go run ./cmd/stocklens analyze stock 600519`,
}

var (
	analyzeJSON    bool
	analyzeOffline bool

	analyzeScenarioCmd = &cobra.Command{
		Use:   "scenario [text]",
		Short: "시나리오 분석",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyzeScenario,
	}

	analyzeCompanyCmd = &cobra.Command{
		Use:   "company [name]",
		Short: "회사 공급망 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCompany,
	}

	analyzeSupplierCmd = &cobra.Command{
		Use:   "supplier [keyword]",
		Short: "공급사 검색",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeSupplier,
	}

	analyzeStockCmd = &cobra.Command{
		Use:   "stock [symbol]",
		Short: "종목 점수",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeStock,
	}
)

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.AddCommand(analyzeScenarioCmd, analyzeCompanyCmd, analyzeSupplierCmd, analyzeStockCmd)

	analyzeCmd.PersistentFlags().BoolVar(&analyzeJSON, "json", false, "JSON 출력")
	analyzeCmd.PersistentFlags().BoolVar(&analyzeOffline, "offline", false, "지식그래프만 사용 (실시간 데이터 없음)")
}

// withMatcher runs fn with a matcher; online matchers enrich listed edges with live data
func withMatcher(fn func(ctx context.Context, m *supplychain.Matcher) error) error {
	ctx := context.Background()

	if analyzeOffline {
		graph, err := supplychain.DefaultGraph()
		if err != nil {
			return err
		}
		var extractor supplychain.KeywordExtractor
		if gse, err := supplychain.NewGseExtractor(); err == nil {
			extractor = gse
		}
		return fn(ctx, supplychain.NewMatcher(graph, extractor, logger.Nop()))
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	m, err := a.newMatcher(a.newService())
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func runAnalyzeScenario(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	return withMatcher(func(ctx context.Context, m *supplychain.Matcher) error {
		res := m.AnalyzeScenario(ctx, text)
		if analyzeJSON {
			return PrintJSON(res)
		}

		PrintJobHeader("Scenario Analysis", [2]string{"Scenario", text})
		PrintKeyValue("Keywords", strings.Join(res.Keywords, ", "))
		fmt.Println()

		if len(res.Detected) == 0 {
			PrintWarning("No company identified")
			for _, s := range res.Suggestions {
				fmt.Printf("   • %s (%s)\n", s.Name, s.MatchedKeyword)
			}
			return nil
		}

		widths := []int{12, 14, 16, 10}
		PrintTableHeader([]string{"ID", "Name", "Matched", "Confidence"}, widths)
		for _, d := range res.Detected {
			PrintTableRow([]string{d.CompanyID, d.Name, d.MatchedKeyword, fmt.Sprintf("%.1f", d.Confidence)}, widths)
		}

		for _, r := range res.Reports {
			printReport(r)
		}
		return nil
	})
}

func runAnalyzeCompany(cmd *cobra.Command, args []string) error {
	return withMatcher(func(ctx context.Context, m *supplychain.Matcher) error {
		report, found := m.CompanySupplyChain(ctx, args[0])
		if analyzeJSON {
			return PrintJSON(report)
		}
		if !found {
			PrintWarning(fmt.Sprintf("Unknown company: %s", args[0]))
			return nil
		}

		printReport(report)
		return nil
	})
}

func runAnalyzeSupplier(cmd *cobra.Command, args []string) error {
	return withMatcher(func(ctx context.Context, m *supplychain.Matcher) error {
		matches := m.SearchSupplierByKeyword(ctx, args[0])
		if analyzeJSON {
			return PrintJSON(matches)
		}

		PrintJobHeader("Supplier Search", [2]string{"Keyword", args[0]})
		widths := []int{18, 12, 10, 10, 24}
		PrintTableHeader([]string{"Supplier", "Ticker", "Type", "Chain", "Relationship"}, widths)
		for _, s := range matches {
			PrintTableRow([]string{s.Name, s.Ticker, s.RelationshipType, s.SupplyChainOf, s.Relationship}, widths)
		}
		PrintSeparator()
		PrintSuccess(fmt.Sprintf("%d suppliers found", len(matches)))
		return nil
	})
}

func printReport(r *supplychain.Report) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s (%s)\n", r.CompanyName, r.CompanyID)
	PrintSeparator()

	widths := []int{18, 12, 24, 10, 10}
	PrintTableHeader([]string{"Company", "Ticker", "Relationship", "Role", "Price"}, widths)
	for _, group := range [][]supplychain.EdgeReport{r.DirectSuppliers, r.IndirectSuppliers, r.Customers} {
		for _, e := range group {
			price := "-"
			if e.Data != nil {
				price = fmtFloat(e.Data.Price, "%.2f")
			}
			PrintTableRow([]string{e.Name, e.Ticker, e.Relationship, e.Role, price}, widths)
		}
	}

	PrintKeyValue("Listed", fmt.Sprint(len(r.ListedCompanies)))
	PrintKeyValue("Unlisted", fmt.Sprint(len(r.UnlistedCompanies)))
}

func runAnalyzeStock(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.newService().AnalyzeStock(context.Background(), args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}
	if analyzeJSON {
		return PrintJSON(res)
	}

	PrintJobHeader("Stock Analysis", [2]string{"Symbol", res.Record.Symbol})
	PrintKeyValue("Name", res.Record.Name)
	PrintKeyValue("Industry", res.Record.Industry)
	if res.Quote != nil {
		PrintKeyValue("Price", fmtFloat(res.Quote.Price, "%.2f"))
		PrintKeyValue("Change %", fmtFloat(res.Quote.ChangePct, "%.2f"))
	}
	if res.Valuation != nil {
		PrintKeyValue("PE (TTM)", fmtFloat(res.Valuation.PETTM, "%.2f"))
	}
	PrintSeparator()
	PrintKeyValue("Score", fmt.Sprintf("%d (%s)", res.Investment.Total, res.Investment.Rating))
	PrintKeyValue("Risk", fmt.Sprintf("%d (%s)", res.Risk.Score, res.Risk.Level))
	for _, f := range res.Risk.Factors {
		fmt.Printf("   • %s\n", f)
	}
	for _, w := range res.Warnings {
		PrintWarning(w)
	}
	return nil
}
