package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// ErrRenderFailed a view could not be shown at the bound message.
var ErrRenderFailed = errors.New("render failed")

// Resolver renders views onto message identities, falling back to a new
// message when an ordinary message can no longer be edited.
type Resolver struct {
	gateway repository.Gateway
	log     *slog.Logger
}

// NewResolver creates a Resolver
func NewResolver(gateway repository.Gateway, log *slog.Logger) *Resolver {
	return &Resolver{gateway: gateway, log: log.With("component", "resolver")}
}

// Render shows view at id and returns the identity that now holds it: id
// itself, or the replacement message sent after a failed ordinary edit.
func (r *Resolver) Render(ctx context.Context, id entity.MessageIdentity, view entity.View) (entity.MessageIdentity, error) {
	if id.IsZero() {
		return id, fmt.Errorf("render to empty identity: %w", ErrRenderFailed)
	}

	err := r.gateway.Edit(ctx, id, view)
	switch {
	case err == nil, errors.Is(err, repository.ErrNotModified):
		return id, nil

	case errors.Is(err, repository.ErrMessageGone):
		if id.IsInline() {
			r.log.WarnContext(ctx, "inline message can't be edited", slog.String("message", id.String()), slog.Any("error", err))
			return id, fmt.Errorf("edit %s: %w", id, ErrRenderFailed)
		}
		r.log.InfoContext(ctx, "message can't be edited, sending a new one", slog.String("message", id.String()), slog.Any("error", err))
		fresh, sendErr := r.gateway.Send(ctx, id.ChatID, view)
		if sendErr != nil {
			r.log.ErrorContext(ctx, "fallback send failed", slog.Int64("chat_id", id.ChatID), slog.Any("error", sendErr))
			return id, fmt.Errorf("send to %d: %w", id.ChatID, ErrRenderFailed)
		}
		return fresh, nil

	default:
		r.log.ErrorContext(ctx, "edit failed", slog.String("message", id.String()), slog.Any("error", err))
		return id, fmt.Errorf("edit %s: %w", id, ErrRenderFailed)
	}
}
