package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlingo/transqa/internal/alerting"
	"github.com/medlingo/transqa/internal/model"
	"github.com/medlingo/transqa/internal/review"
	"github.com/medlingo/transqa/pkg/notify"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the alert monitor and review sweep loops",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var thresholds []model.Threshold
		if cfg.Alerting.ThresholdFile != "" {
			thresholds, err = alerting.LoadThresholds(cfg.Alerting.ThresholdFile)
			if err != nil {
				return err
			}
		}

		senders := []notify.Sender{notify.LogSender{}}
		if cfg.Alerting.WebhookURL != "" {
			senders = append(senders, notify.NewWebhookSender(cfg.Alerting.WebhookURL))
		}

		manager := alerting.NewManager(alerting.Config{
			Window:           time.Duration(cfg.Alerting.WindowMinutes) * time.Minute,
			AutoResolveGrace: time.Duration(cfg.Alerting.AutoResolveGraceMinutes) * time.Minute,
			HistoryLimit:     cfg.Alerting.HistoryLimit,
		}, thresholds,
			alerting.WithSenders(senders...),
			alerting.WithStore(st),
		)

		router := review.NewRouter(review.FromConfig(cfg.Review), review.WithStore(st))
		if err := router.Hydrate(ctx); err != nil {
			return err
		}

		go router.Run(ctx)

		interval := time.Duration(cfg.Alerting.CheckIntervalSecs) * time.Second
		zap.L().Info("monitor running")
		manager.Monitor(ctx, interval)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
