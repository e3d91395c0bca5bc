package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stocklens",
	Short: "StockLens - A주 종목 데이터 & 공급망 분석",
	Long: `StockLens Unified CLI

A주 종목 기본정보/일봉을 외부 소스에서 수집해 저장소에 캐시하고,
자유 텍스트 시나리오에서 공급망 관계를 찾아냅니다.

Usage:
  go run ./cmd/stocklens [command]

Examples:
  go run ./cmd/stocklens migrate
  go run ./cmd/stocklens api
  go run ./cmd/stocklens crawl incremental
  go run ./cmd/stocklens analyze scenario "英伟达发布最新的GPU芯片"`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
}
