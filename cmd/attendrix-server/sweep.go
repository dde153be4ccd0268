package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/attendrix/server/internal/attendrix/service"
	"github.com/attendrix/server/internal/config"
	"github.com/attendrix/server/internal/logging"
)

func newSweepCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Record absences for registered users with no scans on a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, configFile)
			if err != nil {
				return err
			}
			logging.SetDebug(cfg.Debug)

			day := date
			if day == "" {
				day = time.Now().In(cfg.Location()).AddDate(0, 0, -1).Format("2006-01-02")
			}

			env, err := openEnv(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			sweeper := service.NewAbsenceSweeper(env.registry, env.attendance, service.SweeperConfig{
				Location: cfg.Location(),
			}, logging.L)

			swept, err := sweeper.SweepDay(cmd.Context(), day)
			if err != nil {
				return err
			}
			logging.Infof("swept %s: %d absences recorded", day, swept)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to sweep (YYYY-MM-DD, default yesterday)")
	return cmd
}
