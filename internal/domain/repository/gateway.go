package repository

import (
	"context"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// Gateway outbound messaging transport
type Gateway interface {
	// Send posts a new message and returns its identity
	Send(ctx context.Context, chatID int64, view entity.View) (entity.MessageIdentity, error)

	// Edit rewrites a message. Returns ErrNotModified or ErrMessageGone for
	// the recoverable failures.
	Edit(ctx context.Context, id entity.MessageIdentity, view entity.View) error

	// Delete removes a chat message; failures are logged, not returned
	Delete(ctx context.Context, chatID int64, messageID int)

	// AnswerInline answers an inline query
	AnswerInline(ctx context.Context, answer entity.InlineAnswer) error

	// DownloadPhoto fetches the bytes of an uploaded photo
	DownloadPhoto(ctx context.Context, fileID string) ([]byte, error)

	// SendDocument posts a file to a chat
	SendDocument(ctx context.Context, chatID int64, name string, data []byte) error
}
