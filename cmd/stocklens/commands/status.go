package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stocklens/internal/supplychain"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "연결 상태 확인",
	Long: `저장소, Redis, 공급망 지식그래프 상태를 확인합니다.

Example:
  go run ./cmd/stocklens status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		PrintError(err.Error())
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	PrintJobHeader("Status")

	health := a.health.HealthCheck(ctx)
	PrintKeyValue("Store", health.Driver)
	if !health.Healthy {
		PrintError(fmt.Sprintf("store unhealthy: %s", health.Error))
		return fmt.Errorf("store unhealthy")
	}
	PrintKeyValue("Ping", health.ResponseTime.String())
	PrintKeyValue("Conns", fmt.Sprintf("%d open / %d idle", health.OpenConns, health.IdleConns))

	keys, err := a.store.ListAllSymbolKeys(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}
	PrintKeyValue("Symbols", fmt.Sprint(len(keys)))

	PrintKeyValue("Redis", fmt.Sprint(a.redis.Enabled()))

	graph, err := supplychain.DefaultGraph()
	if err != nil {
		return err
	}
	PrintKeyValue("Companies", fmt.Sprint(len(graph.Companies())))

	PrintSeparator()
	PrintSuccess("All systems ready")
	return nil
}
