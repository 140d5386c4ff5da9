package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// SearchPageSize inline search results per page.
const SearchPageSize = 20

// PresenterUseCase read-only views over a user's medicines
type PresenterUseCase interface {
	// ListView page of the owner's medicines
	ListView(ctx context.Context, owner int64, page int) (entity.View, error)

	// DetailView medicine card; repository.ErrNotFound when it is gone
	DetailView(ctx context.Context, owner int64, id string, inline bool) (entity.View, error)

	// Search one page of inline search results and the next offset token
	Search(ctx context.Context, owner int64, query, offset string) ([]entity.Medicine, string, error)

	// AnswerInline answers an inline query with search results
	AnswerInline(ctx context.Context, q entity.InlineQuery) error
}

type presenterUseCase struct {
	repo    repository.MedicineRepository
	gateway repository.Gateway
	log     *slog.Logger
}

// NewPresenterUseCase creates a PresenterUseCase
func NewPresenterUseCase(repo repository.MedicineRepository, gateway repository.Gateway, log *slog.Logger) PresenterUseCase {
	return &presenterUseCase{
		repo:    repo,
		gateway: gateway,
		log:     log.With("component", "presenter"),
	}
}

// ListView page of the owner's medicines
func (p *presenterUseCase) ListView(ctx context.Context, owner int64, page int) (entity.View, error) {
	meds, err := p.repo.ListByOwner(ctx, owner)
	if err != nil {
		return entity.View{}, fmt.Errorf("failed to list medicines: %w", err)
	}
	return ListView(meds, page), nil
}

// DetailView medicine card
func (p *presenterUseCase) DetailView(ctx context.Context, owner int64, id string, inline bool) (entity.View, error) {
	med, err := p.repo.FindByID(ctx, id, owner)
	if err != nil {
		return entity.View{}, err
	}
	return DetailView(med, inline), nil
}

// SearchNeedles lower-cased query plus its transliteration when it differs.
func SearchNeedles(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	needles := []string{q}
	if t := Transliterate(q); t != q {
		needles = append(needles, t)
	}
	return needles
}

// Search one page of inline search results
func (p *presenterUseCase) Search(ctx context.Context, owner int64, query, offset string) ([]entity.Medicine, string, error) {
	needles := SearchNeedles(query)
	if len(needles) == 0 {
		return nil, "", nil
	}

	start, err := strconv.Atoi(offset)
	if err != nil || start < 0 {
		start = 0
	}

	meds, err := p.repo.Search(ctx, owner, needles, start, SearchPageSize)
	if err != nil {
		return nil, "", fmt.Errorf("failed to search medicines: %w", err)
	}

	next := ""
	if len(meds) == SearchPageSize {
		next = strconv.Itoa(start + SearchPageSize)
	}
	return meds, next, nil
}

// AnswerInline answers an inline query with search results
func (p *presenterUseCase) AnswerInline(ctx context.Context, q entity.InlineQuery) error {
	if strings.TrimSpace(q.Query) == "" {
		return p.gateway.AnswerInline(ctx, entity.InlineAnswer{
			QueryID:       q.ID,
			CacheTime:     5,
			Personal:      true,
			SwitchPMText:  "Введите название...",
			SwitchPMParam: "inline_help",
		})
	}

	meds, next, err := p.Search(ctx, q.UserID, q.Query, q.Offset)
	if err != nil {
		p.log.ErrorContext(ctx, "inline search failed", slog.Int64("user_id", q.UserID), slog.Any("error", err))
		return p.gateway.AnswerInline(ctx, entity.InlineAnswer{
			QueryID:       q.ID,
			CacheTime:     1,
			Personal:      true,
			SwitchPMText:  "Ошибка поиска. Перейти в бот?",
			SwitchPMParam: "error",
		})
	}

	results := make([]entity.InlineArticle, 0, len(meds))
	for i := range meds {
		med := &meds[i]
		results = append(results, entity.InlineArticle{
			ID:          fmt.Sprintf("med_%d_%s", q.UserID, med.ID),
			Title:       med.Name,
			Description: fmt.Sprintf("Кол-во: %s | Срок: %s", med.Quantity, med.ExpDate),
			View:        InlineCardView(med),
		})
	}

	p.log.DebugContext(ctx, "inline search", slog.Int64("user_id", q.UserID), slog.String("query", q.Query), slog.Int("results", len(results)))

	return p.gateway.AnswerInline(ctx, entity.InlineAnswer{
		QueryID:    q.ID,
		Results:    results,
		NextOffset: next,
		CacheTime:  5,
		Personal:   true,
	})
}
