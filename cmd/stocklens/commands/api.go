package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stocklens/internal/api"
	"github.com/wonny/stocklens/internal/api/handlers"
	"github.com/wonny/stocklens/internal/crawler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health
  GET  /api/stocks/{symbol}                    - 종목 기본정보 (cache-aside)
  GET  /api/stocks/{symbol}/trade?date=        - 일봉 1건 (기본: 최신)
  GET  /api/stocks/{symbol}/history?start=&end=
  GET  /api/stocks/{symbol}/sectors            - 업종/개념 보드와 구성 종목 수
  GET  /api/stocks/{symbol}/quote              - 실시간 시세
  GET  /api/stocks/{symbol}/analysis           - 투자/리스크 점수
  GET  /api/sectors/{kind}/{name}/analysis?limit=
  POST /api/supply-chain/analyze               - {"scenario": "..."}
  GET  /api/supply-chain/companies
  GET  /api/supply-chain/companies/{name}
  GET  /api/supply-chain/suppliers?keyword=
  POST /api/crawl/bulk | incremental | trades  - 비동기 수집 (202 + run_id)
  GET  /api/crawl/runs/{id}

Example:
  go run ./cmd/stocklens api
  go run ./cmd/stocklens api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockLens API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	svc := a.newService()
	cr, err := a.newCrawler()
	if err != nil {
		return err
	}
	matcher, err := a.newMatcher(svc)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Handlers{
		Stock:       handlers.NewStockHandler(svc, a.log),
		SupplyChain: handlers.NewSupplyChainHandler(matcher, a.log),
		Crawl:       handlers.NewCrawlHandler(cr, crawler.NewRuns(0), a.cfg.Crawler.Workers, a.cfg.Crawler.MaxWorkers, a.log),
	}, a.log)

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
