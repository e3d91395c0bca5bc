package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/internal/crawler"
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "종목/일봉 일괄 수집",
	Long: `외부 소스에서 종목 기본정보와 일봉을 수집해 저장소에 upsert 합니다.

Ctrl+C 시 새 종목은 더 이상 시작하지 않고, 진행 중인 종목은 끝까지 처리합니다.

Subcommands:
  bulk         - 외부 종목 전체(또는 구간) 수집
  incremental  - 저장소에 없는 종목만 수집 (--update-existing 시 전체 갱신)
  trades       - 저장된 모든 종목의 일봉 수집
  today        - 오늘 일봉 수집

Example:
  go run ./cmd/stocklens crawl bulk --offset 0 --limit 500
  go run ./cmd/stocklens crawl incremental --workers 8
  go run ./cmd/stocklens crawl trades --start 2024-03-01 --end 2024-03-08`,
}

var (
	crawlWorkers        int
	crawlOffset         int
	crawlLimit          int
	crawlUpdateExisting bool
	crawlStart          string
	crawlEnd            string

	crawlBulkCmd = &cobra.Command{
		Use:   "bulk",
		Short: "외부 종목 전체 수집",
		RunE:  runCrawlBulk,
	}

	crawlIncrementalCmd = &cobra.Command{
		Use:   "incremental",
		Short: "신규 종목만 수집",
		RunE:  runCrawlIncremental,
	}

	crawlTradesCmd = &cobra.Command{
		Use:   "trades",
		Short: "저장된 종목의 일봉 수집",
		RunE:  runCrawlTrades,
	}

	crawlTodayCmd = &cobra.Command{
		Use:   "today",
		Short: "오늘 일봉 수집",
		RunE:  runCrawlToday,
	}
)

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.AddCommand(crawlBulkCmd, crawlIncrementalCmd, crawlTradesCmd, crawlTodayCmd)

	crawlCmd.PersistentFlags().IntVar(&crawlWorkers, "workers", 0, "동시 작업 수 (기본: CRAWLER_WORKERS, 최대: CRAWLER_MAX_WORKERS)")

	crawlBulkCmd.Flags().IntVar(&crawlOffset, "offset", 0, "시작 위치")
	crawlBulkCmd.Flags().IntVar(&crawlLimit, "limit", 0, "최대 종목 수 (0 = 전체)")

	crawlIncrementalCmd.Flags().BoolVar(&crawlUpdateExisting, "update-existing", false, "기존 종목도 다시 수집")

	crawlTradesCmd.Flags().StringVar(&crawlStart, "start", "", "시작일 YYYY-MM-DD (기본: 오늘)")
	crawlTradesCmd.Flags().StringVar(&crawlEnd, "end", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	crawlTradesCmd.Flags().IntVar(&crawlLimit, "limit", 0, "최대 종목 수 (0 = 전체)")
}

// withCrawler runs fn with a crawler and a context cancelled by Ctrl+C
func withCrawler(fn func(ctx context.Context, a *app, c *crawler.Crawler) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.newCrawler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a, c)
}

func workers(a *app) int {
	switch {
	case crawlWorkers < 1:
		return a.cfg.Crawler.Workers
	case crawlWorkers > a.cfg.Crawler.MaxWorkers:
		return a.cfg.Crawler.MaxWorkers
	default:
		return crawlWorkers
	}
}

func runCrawlBulk(cmd *cobra.Command, args []string) error {
	return withCrawler(func(ctx context.Context, a *app, c *crawler.Crawler) error {
		PrintJobHeader("Bulk Crawl",
			[2]string{"Offset", strconv.Itoa(crawlOffset)},
			[2]string{"Limit", strconv.Itoa(crawlLimit)},
			[2]string{"Workers", strconv.Itoa(workers(a))},
		)

		res, err := c.CrawlBulk(ctx, crawler.Window{Offset: crawlOffset, Limit: crawlLimit}, workers(a))
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintKeyValue("Run ID", res.RunID)
		PrintKeyValue("Total", strconv.Itoa(res.Total))
		PrintKeyValue("Success", strconv.Itoa(res.Success))
		PrintKeyValue("Failed", strconv.Itoa(res.Failed))
		PrintKeyValue("Cancelled", strconv.Itoa(res.Cancelled))
		PrintKeyValue("Duration", fmtDuration(res.Duration))
		PrintSeparator()
		PrintSuccess("Bulk crawl completed")
		return nil
	})
}

func runCrawlIncremental(cmd *cobra.Command, args []string) error {
	return withCrawler(func(ctx context.Context, a *app, c *crawler.Crawler) error {
		PrintJobHeader("Incremental Crawl",
			[2]string{"Update", strconv.FormatBool(crawlUpdateExisting)},
			[2]string{"Workers", strconv.Itoa(workers(a))},
		)

		stats, err := c.CrawlIncremental(ctx, crawlUpdateExisting, workers(a))
		if err != nil {
			PrintError(err.Error())
			return err
		}

		PrintKeyValue("Run ID", stats.RunID)
		PrintKeyValue("New", strconv.Itoa(stats.New))
		PrintKeyValue("Updated", strconv.Itoa(stats.Updated))
		PrintKeyValue("Skipped", strconv.Itoa(stats.Skipped))
		PrintKeyValue("Failed", strconv.Itoa(stats.Failed))
		PrintKeyValue("Cancelled", strconv.Itoa(stats.Cancelled))
		PrintKeyValue("Duration", fmtDuration(stats.Duration))
		PrintSeparator()
		PrintSuccess("Incremental crawl completed")
		return nil
	})
}

func runCrawlTrades(cmd *cobra.Command, args []string) error {
	rng, err := contracts.ParseDateRange(crawlStart, crawlEnd)
	if err != nil {
		return err
	}

	return withCrawler(func(ctx context.Context, a *app, c *crawler.Crawler) error {
		today := c.Today()
		if rng.From.IsZero() {
			rng.From = today
		}
		if rng.To.IsZero() {
			rng.To = today
		}
		return crawlTrades(ctx, c, rng, crawlLimit)
	})
}

func runCrawlToday(cmd *cobra.Command, args []string) error {
	return withCrawler(func(ctx context.Context, a *app, c *crawler.Crawler) error {
		PrintJobHeader("Trade Crawl (today)",
			[2]string{"Date", c.Today().Format(contracts.DateLayout)},
		)

		stats, err := c.CrawlToday(ctx)
		if err != nil {
			PrintError(err.Error())
			return err
		}
		printTradeStats(stats)
		return nil
	})
}

func crawlTrades(ctx context.Context, c *crawler.Crawler, rng contracts.DateRange, limit int) error {
	PrintJobHeader("Trade Crawl",
		[2]string{"Period", fmt.Sprintf("%s ~ %s", rng.From.Format(contracts.DateLayout), rng.To.Format(contracts.DateLayout))},
		[2]string{"Limit", strconv.Itoa(limit)},
	)

	stats, err := c.CrawlAllDailyTrade(ctx, rng.From, rng.To, limit)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	printTradeStats(stats)
	return nil
}

func printTradeStats(stats *crawler.TradeStats) {
	PrintKeyValue("Run ID", stats.RunID)
	PrintKeyValue("Symbols", strconv.Itoa(stats.Symbols))
	PrintKeyValue("Success", strconv.Itoa(stats.Success))
	PrintKeyValue("Failed", strconv.Itoa(stats.Failed))
	PrintKeyValue("Rows", strconv.Itoa(stats.Rows))
	PrintKeyValue("Cancelled", strconv.Itoa(stats.Cancelled))
	PrintKeyValue("Duration", fmtDuration(stats.Duration))
	PrintSeparator()
	PrintSuccess("Trade crawl completed")
}
