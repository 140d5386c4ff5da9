package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/medkit-bot/config"
	"github.com/yourusername/medkit-bot/internal/delivery/telegram"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
	"github.com/yourusername/medkit-bot/internal/infrastructure/barcode"
	"github.com/yourusername/medkit-bot/internal/infrastructure/parser"
	"github.com/yourusername/medkit-bot/internal/infrastructure/scheduler"
	"github.com/yourusername/medkit-bot/internal/usecase"
)

// App the wired bot: storage, Telegram transport and use cases.
type App struct {
	cfg  *config.Config
	log  *slog.Logger
	loc  *time.Location
	repo repository.MedicineRepository

	bot      *tgbotapi.BotAPI
	gateway  *telegram.Gateway
	handler  *telegram.BotHandler
	reminder usecase.ReminderUseCase
}

// New connects to storage and Telegram and wires the use cases.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, err
	}

	repo, err := OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	bot.Debug = cfg.Telegram.Debug

	gateway := telegram.NewGateway(bot, log)
	lookup := barcode.NewLookup(
		barcode.NewDecoder(),
		barcode.NewScraper(cfg.Lookup.BaseURL, cfg.Lookup.UserAgent, cfg.Lookup.Timeout),
		log,
	)

	presenter := usecase.NewPresenterUseCase(repo, gateway, log)
	dialogue := usecase.NewDialogueUseCase(repo, gateway, lookup, presenter, log, usecase.DialogueConfig{
		Location:      loc,
		LookupTimeout: cfg.Lookup.Timeout,
	})
	inventory := usecase.NewInventoryUseCase(repo, parser.NewExcelSheet(), log, loc, nil)
	reminder := usecase.NewReminderUseCase(repo, gateway, log, usecase.ReminderConfig{
		ThresholdDays: cfg.Reminder.ThresholdDays,
		Location:      loc,
		SendRate:      cfg.Reminder.SendRate,
	})

	return &App{
		cfg:      cfg,
		log:      log,
		loc:      loc,
		repo:     repo,
		bot:      bot,
		gateway:  gateway,
		handler:  telegram.NewBotHandler(bot, gateway, dialogue, presenter, inventory, log, cfg.Telegram.PollTimeout),
		reminder: reminder,
	}, nil
}

// Run serves updates and, when enabled, the reminder schedule until ctx is
// done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting medkit bot",
		slog.String("version", BuildVersion()),
		slog.String("bot", "@"+a.bot.Self.UserName),
		slog.String("storage", a.cfg.Storage.Driver),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.handler.Start(gctx)
	})

	if a.cfg.Reminder.Enabled {
		schedule, err := scheduler.NewSchedule(a.cfg.Reminder.Rule, a.loc, a.log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return schedule.Run(gctx, a.reminder.Sweep)
		})
	} else {
		a.log.InfoContext(ctx, "reminders disabled")
	}

	return g.Wait()
}

// Remind runs a single reminder sweep.
func (a *App) Remind(ctx context.Context) error {
	return a.reminder.Sweep(ctx)
}

// Close releases the storage handle.
func (a *App) Close() error {
	a.log.Info("closing storage")
	return a.repo.Close()
}

// Export writes owner's inventory to an xlsx file at path. It needs storage
// only, not the bot.
func Export(ctx context.Context, cfg *config.Config, log *slog.Logger, owner int64, path string) error {
	repo, err := OpenStorage(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer repo.Close()

	inventory := usecase.NewInventoryUseCase(repo, parser.NewExcelSheet(), log, nil, nil)
	data, err := inventory.Export(ctx, owner)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.InfoContext(ctx, "inventory exported", slog.Int64("owner", owner), slog.String("path", path))
	return nil
}
