package root

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plant-care/internal/bot"
	"plant-care/internal/logging"
	"plant-care/internal/service"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notification scheduler and the admin bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			scheduler, err := a.newScheduler(ctx)
			if err != nil {
				return err
			}
			if a.cfg.Scheduler.AutostartEnabled() {
				scheduler.Start()
			} else {
				a.log.Info().Msg("scheduler autostart disabled; use the admin bot to resume")
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				scheduler.Stop(stopCtx)
			}()

			botDone := make(chan error, 1)
			if a.cfg.Telegram.Token != "" {
				if err := startBot(ctx, a, scheduler, botDone); err != nil {
					return err
				}
			} else {
				a.log.Info().Msg("telegram token not set; admin bot disabled")
				close(botDone)
			}

			a.log.Info().Str("push", a.cfg.Push.Driver).Dur("interval", a.cfg.Scheduler.Interval).Msg("plantcare started")
			<-ctx.Done()

			select {
			case err := <-botDone:
				if err != nil && !errors.Is(err, context.Canceled) {
					a.log.Error().Err(err).Msg("bot stopped with error")
				}
			case <-time.After(shutdownTimeout):
				a.log.Warn().Msg("bot did not stop in time")
			}
			a.log.Info().Msg("shutdown complete")
			return nil
		},
	}
}

func startBot(ctx context.Context, a *app, scheduler *service.SchedulerService, done chan<- error) error {
	log := logging.Component(a.log, "bot")
	reports := service.NewReportService(a.finder, scheduler, a.logs, nil)

	adminBot, err := bot.New(a.cfg.Telegram.Token, a.cfg.Telegram.AdminChatIDs, scheduler, a.finder, reports, log)
	if err != nil {
		return err
	}

	loc, ok := service.LoadLocation(a.cfg.Telegram.DigestTimezone)
	if !ok {
		log.Warn().Str("timezone", a.cfg.Telegram.DigestTimezone).Msg("unknown digest timezone; using UTC")
	}
	if err := adminBot.ScheduleDailyDigest(a.cfg.Telegram.DigestAt, loc); err != nil {
		return err
	}

	go func() {
		done <- adminBot.Start(ctx)
	}()
	return nil
}
