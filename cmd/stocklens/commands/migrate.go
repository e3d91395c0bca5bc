package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "저장소 스키마 생성",
	Long: `STORE_DRIVER 에 해당하는 저장소에 테이블을 생성합니다.
CREATE TABLE IF NOT EXISTS 이므로 여러 번 실행해도 안전합니다.

Example:
  go run ./cmd/stocklens migrate
  STORE_DRIVER=sqlite go run ./cmd/stocklens migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.store.Migrate(ctx); err != nil {
		PrintError(err.Error())
		return fmt.Errorf("migrate: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Schema ready (%s)", a.cfg.StoreDriver))
	return nil
}
