package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// MaxMessageRunes Telegram text message limit.
const MaxMessageRunes = 4096

// ReminderUseCase expiry digests
type ReminderUseCase interface {
	// Sweep sends a digest to every owner with expiring or expired medicines
	Sweep(ctx context.Context) error

	// Digest text for one owner, "" when there is nothing to report
	Digest(ctx context.Context, owner int64) (string, error)
}

// ReminderConfig sweep settings
type ReminderConfig struct {
	ThresholdDays int
	Location      *time.Location
	Now           func() time.Time
	// Messages per second across all owners; 0 disables pacing.
	SendRate float64
}

type reminderUseCase struct {
	repo    repository.MedicineRepository
	gateway repository.Gateway
	log     *slog.Logger

	threshold int
	loc       *time.Location
	now       func() time.Time
	limiter   *rate.Limiter
}

// NewReminderUseCase creates a ReminderUseCase
func NewReminderUseCase(repo repository.MedicineRepository, gateway repository.Gateway, log *slog.Logger, cfg ReminderConfig) ReminderUseCase {
	if cfg.ThresholdDays <= 0 {
		cfg.ThresholdDays = 30
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.SendRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SendRate), 1)
	}

	return &reminderUseCase{
		repo:      repo,
		gateway:   gateway,
		log:       log.With("component", "reminder"),
		threshold: cfg.ThresholdDays,
		loc:       cfg.Location,
		now:       cfg.Now,
		limiter:   limiter,
	}
}

// Sweep sends a digest to every owner with expiring or expired medicines
func (r *reminderUseCase) Sweep(ctx context.Context) error {
	owners, err := r.repo.DistinctOwners(ctx)
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}
	if len(owners) == 0 {
		r.log.InfoContext(ctx, "no owners with medicines, nothing to remind")
		return nil
	}
	r.log.InfoContext(ctx, "reminder sweep started", slog.Int("owners", len(owners)))

	sent := 0
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := r.Digest(ctx, owner)
		if err != nil {
			r.log.ErrorContext(ctx, "digest failed", slog.Int64("user_id", owner), slog.Any("error", err))
			continue
		}
		if text == "" {
			continue
		}

		for _, chunk := range SplitMessage(text, MaxMessageRunes) {
			if err := r.limiter.Wait(ctx); err != nil {
				return err
			}
			if _, err := r.gateway.Send(ctx, owner, entity.View{Text: chunk, Markdown: true}); err != nil {
				r.log.ErrorContext(ctx, "failed to send reminder", slog.Int64("user_id", owner), slog.Any("error", err))
				break
			}
		}
		sent++
	}

	r.log.InfoContext(ctx, "reminder sweep finished", slog.Int("owners", len(owners)), slog.Int("notified", sent))
	return nil
}

// Digest text for one owner
func (r *reminderUseCase) Digest(ctx context.Context, owner int64) (string, error) {
	today := entity.Today(r.now(), r.loc)
	from := entity.FormatDate(today)
	to := entity.FormatDate(today.AddDate(0, 0, r.threshold))

	soon, err := r.repo.FindExpiringBetween(ctx, owner, from, to)
	if err != nil {
		return "", fmt.Errorf("failed to find expiring medicines: %w", err)
	}
	expired, err := r.repo.FindExpiredBefore(ctx, owner, from)
	if err != nil {
		return "", fmt.Errorf("failed to find expired medicines: %w", err)
	}

	var sections []string
	if len(soon) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ Напоминание: Срок годности следующих ваших лекарств истекает в ближайшие %d дней:\n", r.threshold)
		for _, med := range soon {
			fmt.Fprintf(&b, "- %s: `%s`", escapeMarkdown(med.Name), med.ExpDate)
			if exp, err := entity.ParseDate(med.ExpDate, r.loc); err == nil {
				fmt.Fprintf(&b, " (осталось %d дн.)", daysBetween(today, exp))
			}
			b.WriteString("\n")
		}
		sections = append(sections, b.String())
	}
	if len(expired) > 0 {
		var b strings.Builder
		b.WriteString("🚨 Внимание: Срок годности следующих ваших лекарств истек:\n")
		for _, med := range expired {
			fmt.Fprintf(&b, "- %s: `%s`\n", escapeMarkdown(med.Name), med.ExpDate)
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n"), nil
}

// daysBetween whole calendar days from a to b, both at local midnight.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// SplitMessage splits text into chunks of at most maxRunes runes, cutting at
// the last line break in the second half of a chunk when there is one.
func SplitMessage(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = MaxMessageRunes
	}
	r := []rune(text)
	if len(r) <= maxRunes {
		return []string{text}
	}

	parts := make([]string, 0, len(r)/maxRunes+1)
	for len(r) > maxRunes {
		split := maxRunes
		for i := maxRunes - 1; i > maxRunes/2; i-- {
			if r[i] == '\n' {
				split = i + 1
				break
			}
		}
		if p := strings.TrimSpace(string(r[:split])); p != "" {
			parts = append(parts, p)
		}
		r = r[split:]
	}
	if p := strings.TrimSpace(string(r)); p != "" {
		parts = append(parts, p)
	}
	return parts
}
