package commands

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/UkralStul/yatube/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL schema",
	Long: `Run gorm AutoMigrate for users, groups, posts, comments and follows.

Examples:
  DATABASE_URL=postgres://... yatube migrate
  yatube migrate -c yatube.toml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if storageType == "" {
		storageType = config.StoragePostgres
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Type != config.StoragePostgres {
		return errors.New("migrate requires postgres storage")
	}

	pg, err := openPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	log.Info("[migrate] schema is up to date")
	return nil
}
