// Package app assembles the engine from configuration: repositories, Redis-backed
// components, services and scheduler jobs.
package app

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/careping/attendance"
	"github.com/cppla/careping/checkin"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/config"
	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/occurrence"
	"github.com/cppla/careping/relation"
	"github.com/cppla/careping/repository"
	"github.com/cppla/careping/scheduler"
)

// App holds the wired services.
type App struct {
	Config    config.AppConfig
	Clock     clock.Clock
	Users     *repository.UserRepository
	Tasks     *repository.TaskRepository
	CheckIns  *checkin.Service
	Relations *relation.Service
	Queue     *relation.DelayQueue
	Reminder  *scheduler.Reminder
	Unbinds   *scheduler.UnbindScanner
	log       *zap.Logger
}

// New wires every component over db and rdb. transport delivers rendered notices.
func New(cfg config.AppConfig, db *gorm.DB, rdb redis.Cmdable, clk clock.Clock, transport notify.Transport, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.StoreTimeout()

	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)
	records := repository.NewCheckInRepository(db)
	logs := repository.NewNotificationLogRepository(db)
	rels := repository.NewRelationRepository(db)

	dedup := notify.NewDedup(rdb, logs, cfg.MarkerTTL(), timeout, log.Named("dedup"))
	dispatcher := notify.NewDispatcher(dedup, logs, users, transport, log.Named("notify"))
	ledger := attendance.NewLedger(rdb, clk, timeout)
	policy := occurrence.NewPolicy(cfg.CheckInWindow())

	queue := relation.NewDelayQueue(rdb, "", timeout)
	relations := relation.NewService(rels, users, queue, relation.NewCooldown(rdb, timeout), dispatcher, clk,
		relation.Options{UnbindDelay: cfg.UnbindDelay(), Cooldown: cfg.Cooldown()}, log.Named("relation"))

	return &App{
		Config:    cfg,
		Clock:     clk,
		Users:     users,
		Tasks:     tasks,
		CheckIns:  checkin.NewService(tasks, records, ledger, dispatcher, relations, users, policy, clk, log.Named("checkin")),
		Relations: relations,
		Queue:     queue,
		Reminder:  scheduler.NewReminder(tasks, records, dedup, dispatcher, users, policy, clk, log.Named("reminder")),
		Unbinds:   scheduler.NewUnbindScanner(relations, log.Named("unbind")),
		log:       log,
	}
}

// Scheduler returns a scheduler with the reminder, unbind and reconcile jobs registered.
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.Config.Location(), a.log.Named("scheduler"))
	err := scheduler.Register(s, a.Reminder, a.Unbinds, scheduler.Intervals{
		Reminder:  time.Duration(a.Config.ReminderPollSeconds) * time.Second,
		Unbind:    time.Duration(a.Config.UnbindScanSeconds) * time.Second,
		Reconcile: time.Duration(a.Config.ReconcileMinutes) * time.Minute,
		Timeout:   a.Config.TickTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	return s, nil
}

// NewTransport builds the push router. The log channel is always available and serves as
// the fallback when the configured default channel cannot be set up.
func NewTransport(cfg config.AppConfig, log *zap.Logger) (notify.Transport, error) {
	fallback := cfg.PushChannel
	if fallback == "" {
		fallback = notify.ChannelLog
	}
	router := notify.NewRouter(fallback).Register(notify.ChannelLog, notify.NewLogTransport(log.Named("push")))

	if cfg.SMTPHost != "" {
		router.Register(notify.ChannelEmail, notify.NewMailTransport(notify.MailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			TLS:      cfg.SMTPTLS,
		}))
	}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramTransport(cfg.TelegramBotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram transport: %w", err)
		}
		router.Register(notify.ChannelTelegram, tg)
	}
	if cfg.DiscordBotToken != "" {
		dc, err := notify.NewDiscordTransport(cfg.DiscordBotToken)
		if err != nil {
			return nil, fmt.Errorf("discord transport: %w", err)
		}
		router.Register(notify.ChannelDiscord, dc)
	}
	return router, nil
}
