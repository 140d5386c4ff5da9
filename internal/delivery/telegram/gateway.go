package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

// maxDownloadSize cap on photos and documents fetched from Telegram.
const maxDownloadSize = 20 << 20

// Gateway Bot API implementation of repository.Gateway
type Gateway struct {
	bot    *tgbotapi.BotAPI
	client *http.Client
	log    *slog.Logger
}

// NewGateway creates a Gateway
func NewGateway(bot *tgbotapi.BotAPI, log *slog.Logger) *Gateway {
	return &Gateway{
		bot:    bot,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With("component", "gateway"),
	}
}

var _ repository.Gateway = (*Gateway)(nil)

// Send posts a new message
func (g *Gateway) Send(ctx context.Context, chatID int64, view entity.View) (entity.MessageIdentity, error) {
	markup, err := buildMarkup(view.Keyboard)
	if err != nil {
		return entity.MessageIdentity{}, err
	}

	msg := tgbotapi.NewMessage(chatID, view.Text)
	msg.ParseMode = parseMode(view)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}

	sent, err := g.bot.Send(msg)
	if err != nil {
		return entity.MessageIdentity{}, fmt.Errorf("failed to send message: %w", err)
	}
	return entity.Ordinary(sent.Chat.ID, sent.MessageID), nil
}

// Edit rewrites an ordinary or inline message
func (g *Gateway) Edit(ctx context.Context, id entity.MessageIdentity, view entity.View) error {
	markup, err := buildMarkup(view.Keyboard)
	if err != nil {
		return err
	}

	cfg := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:          id.ChatID,
			MessageID:       id.MessageID,
			InlineMessageID: id.InlineID,
			ReplyMarkup:     markup,
		},
		Text:                  view.Text,
		ParseMode:             parseMode(view),
		DisableWebPagePreview: true,
	}
	if id.IsInline() {
		cfg.ChatID, cfg.MessageID = 0, 0
	}

	// Request rather than Send: inline edits return true, not a Message.
	if _, err := g.bot.Request(cfg); err != nil {
		return classifyEditError(err)
	}
	return nil
}

// classifyEditError maps Bot API error descriptions onto the recoverable
// edit failures.
func classifyEditError(err error) error {
	desc := strings.ToLower(err.Error())
	switch {
	case strings.Contains(desc, "message is not modified"):
		return fmt.Errorf("%w: %v", repository.ErrNotModified, err)
	case strings.Contains(desc, "message to edit not found"),
		strings.Contains(desc, "message can't be edited"),
		strings.Contains(desc, "message_id_invalid"),
		strings.Contains(desc, "inline message id is invalid"),
		strings.Contains(desc, "message_not_found"):
		return fmt.Errorf("%w: %v", repository.ErrMessageGone, err)
	}
	return fmt.Errorf("failed to edit message: %w", err)
}

// Delete removes a chat message, best effort
func (g *Gateway) Delete(ctx context.Context, chatID int64, messageID int) {
	if _, err := g.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		g.log.DebugContext(ctx, "delete failed", slog.Int64("chat_id", chatID), slog.Int("message_id", messageID), slog.Any("error", err))
	}
}

// AnswerInline answers an inline query
func (g *Gateway) AnswerInline(ctx context.Context, answer entity.InlineAnswer) error {
	results := make([]interface{}, 0, len(answer.Results))
	for _, r := range answer.Results {
		article := tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.View.Text)
		article.Description = r.Description
		article.InputMessageContent = tgbotapi.InputTextMessageContent{
			Text:                  r.View.Text,
			ParseMode:             parseMode(r.View),
			DisableWebPagePreview: true,
		}
		markup, err := buildMarkup(r.View.Keyboard)
		if err != nil {
			return err
		}
		article.ReplyMarkup = markup
		results = append(results, article)
	}

	cfg := tgbotapi.InlineConfig{
		InlineQueryID:     answer.QueryID,
		Results:           results,
		CacheTime:         answer.CacheTime,
		IsPersonal:        answer.Personal,
		NextOffset:        answer.NextOffset,
		SwitchPMText:      answer.SwitchPMText,
		SwitchPMParameter: answer.SwitchPMParam,
	}
	if _, err := g.bot.Request(cfg); err != nil {
		return fmt.Errorf("failed to answer inline query: %w", err)
	}
	return nil
}

// DownloadPhoto fetches an uploaded file by its file ID
func (g *Gateway) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	file, err := g.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(g.bot.Token), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
}

// SendDocument posts a file to a chat
func (g *Gateway) SendDocument(ctx context.Context, chatID int64, name string, data []byte) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	if _, err := g.bot.Send(doc); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}

// SetCommands registers the command menu shown by Telegram clients
func (g *Gateway) SetCommands(ctx context.Context) error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Запустить бота / Главное меню"},
		tgbotapi.BotCommand{Command: "list", Description: "Показать список лекарств"},
		tgbotapi.BotCommand{Command: "add", Description: "Добавить новое лекарство"},
		tgbotapi.BotCommand{Command: "export", Description: "Выгрузить аптечку в Excel"},
		tgbotapi.BotCommand{Command: "help", Description: "Помощь по командам"},
		tgbotapi.BotCommand{Command: "cancel", Description: "Отменить текущее действие"},
	)
	if _, err := g.bot.Request(cfg); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}
