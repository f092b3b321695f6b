package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/rahul/travelcheck/internal/artifacts"
	"github.com/rahul/travelcheck/internal/browser"
	"github.com/rahul/travelcheck/internal/flow"
	"github.com/rahul/travelcheck/internal/monitor"
	"github.com/rahul/travelcheck/internal/notify"
	"github.com/rahul/travelcheck/internal/observability"
	"github.com/rahul/travelcheck/internal/scheduler"
	"github.com/rahul/travelcheck/internal/store"
	"github.com/rahul/travelcheck/internal/triage"
	"github.com/rahul/travelcheck/pkg/config"
)

// checkInterval is how often the purchase flow is exercised.
const checkInterval = time.Hour

func main() {
	if err := Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\033[91m[ FAIL ] %v\033[0m\n", err)
		os.Exit(1)
	}
}

// Run wires the monitor together and blocks until a termination signal.
func Run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args[1:])
	if err != nil {
		return err
	}

	interactive := observability.IsTerminal(os.Stdout)

	logger, logFile, err := observability.NewLogger(observability.LogConfig{
		File:  cfg.SchedulerLogPath(),
		Debug: cfg.Debug,
	})
	if err != nil {
		return err
	}
	defer logFile.Close()

	clock := clockwork.NewRealClock()
	status := observability.NewStatus(clock)

	runs, err := store.NewRunStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer runs.Close()

	runner, err := monitor.New(monitor.Config{
		Launch: func(ctx context.Context) (monitor.Page, error) {
			s, err := browser.Launch(ctx, browser.Options{
				Headless:      cfg.Headless,
				ActionTimeout: cfg.ActionTimeout,
				Logger:        logger,
				Clock:         clock,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Steps:       flow.TravelSteps(cfg.Documents()),
		Screenshots: artifacts.NewScreenshots(cfg.ScreenshotsDir, clock),
		Notifier:    notify.NewDispatcher(logger, notifiers(cfg, logger)...),
		Store:       runs,
		Triage:      explainer(cfg, logger),
		Events:      observability.NewEventLog(cfg.EventLogPath(), 0, clock),
		Status:      status,
		Environment: cfg.Environment,
		Clock:       clock,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.Config{
		Job:      runner.Job(),
		Interval: checkInterval,
		Clock:    clock,
		Logger:   logger,
		Observer: status,
	})
	if err != nil {
		return err
	}

	sep := strings.Repeat("=", 80)
	logger.Info(sep)
	logger.Info("Travel Insurance Test Automation Scheduler Started")
	logger.Infof("Tests will run every 1 hour")
	logger.Infof("Environment: %s", cfg.Environment)
	logger.Info(sep)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Info("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Scheduler.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return sched.Start(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// Live status line, only when someone is looking.
	if interactive {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		dash := &observability.Dashboard{Status: status, Out: os.Stdout, Clock: clock}
		g.Add(
			func() error {
				return dash.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	err = g.Run()
	logger.Info("Scheduler shut down")
	return err
}

// notifiers builds every sink that has credentials configured.
func notifiers(cfg *config.Config, logger logrus.FieldLogger) []notify.Notifier {
	var ns []notify.Notifier

	if cfg.SlackWebhookURL != "" {
		ns = append(ns, notify.NewSlack(cfg.SlackWebhookURL, nil))
	} else {
		logger.Warn("SLACK_WEBHOOK_URL is not set, Slack notifications are disabled")
	}

	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, "", nil)
		if err != nil {
			logger.WithError(err).Warn("Telegram notifications are disabled")
		} else {
			logger.Infof("Telegram notifications go to chat %d as %s", tg.ChatID, tg.Bot.Self.UserName)
			ns = append(ns, tg)
		}
	}

	if cfg.DiscordWebhookURL != "" {
		d, err := notify.NewDiscord(cfg.DiscordWebhookURL, nil)
		if err != nil {
			logger.WithError(err).Warn("Discord notifications are disabled")
		} else {
			ns = append(ns, d)
		}
	}

	return ns
}

// explainer returns nil when no model is configured.
func explainer(cfg *config.Config, logger logrus.FieldLogger) monitor.Explainer {
	if cfg.OpenAIKey == "" {
		return nil
	}
	t, err := triage.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, logger)
	if err != nil {
		logger.WithError(err).Warn("Failure triage is disabled")
		return nil
	}
	return t
}
