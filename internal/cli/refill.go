package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"

	"starquiz-service/internal/app"
	"starquiz-service/internal/config"
	pgstore "starquiz-service/internal/infra/postgres"
)

// NewRefillCmd runs one star refill cycle and exits. Useful from cron when
// the long-running loop is not wanted.
func NewRefillCmd(configPath *string) *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "refill",
		Short: "Top up stars for users below the refill target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			if target <= 0 {
				target = cfg.Refill.Target
			}
			if target <= 0 {
				target = app.DefaultRefillTarget
			}

			economy := app.NewEconomyService(pgstore.NewStore(db), logger)
			refilled, err := economy.RunRefillCycle(cmd.Context(), target)
			if err != nil {
				return err
			}
			logger.Info("refill complete", zap.Int("users", refilled))
			return nil
		},
	}
	cmd.Flags().IntVar(&target, "target", 0, "star floor to refill up to")
	return cmd
}
