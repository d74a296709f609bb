package main

import (
	"fmt"

	"blogtalk/internal/db"
	"blogtalk/internal/logctx"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down>",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(db.Up), string(db.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := db.Direction(args[0])
		if dir != db.Up && dir != db.Down {
			return fmt.Errorf("unknown direction %q, want up or down", args[0])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logctx.New(cfg.Env)

		gdb, err := db.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := db.Migrate(gdb, dir); err != nil {
			return err
		}
		logger.Info("migrations applied", "direction", dir)
		return nil
	},
}
