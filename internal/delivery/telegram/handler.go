package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/usecase"
)

// maxImportSize spreadsheet uploads above this are refused.
const maxImportSize = 5 * 1024 * 1024

const (
	unknownCommandText = "Неизвестная команда. /help для справки."
	noFlowText         = "Чтобы добавить лекарство, нажмите \"➕ Добавить лекарство\" или введите /add. Для поиска используйте кнопку \"🔍 Начать поиск\"."
	photoNoFlowText    = "Чтобы распознать штрихкод, начните добавление лекарства: /add"
	exportFileName     = "apteka.xlsx"
)

// BotHandler Telegram bot handler
type BotHandler struct {
	bot         *tgbotapi.BotAPI
	gateway     *Gateway
	dialogue    usecase.DialogueUseCase
	presenter   usecase.PresenterUseCase
	inventory   usecase.InventoryUseCase
	log         *slog.Logger
	pollTimeout int

	wg sync.WaitGroup
}

// NewBotHandler creates a BotHandler
func NewBotHandler(
	bot *tgbotapi.BotAPI,
	gateway *Gateway,
	dialogue usecase.DialogueUseCase,
	presenter usecase.PresenterUseCase,
	inventory usecase.InventoryUseCase,
	log *slog.Logger,
	pollTimeout int,
) *BotHandler {
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &BotHandler{
		bot:         bot,
		gateway:     gateway,
		dialogue:    dialogue,
		presenter:   presenter,
		inventory:   inventory,
		log:         log.With("component", "telegram"),
		pollTimeout: pollTimeout,
	}
}

// Start polls updates until ctx is done, then waits for in-flight handlers.
func (h *BotHandler) Start(ctx context.Context) error {
	h.log.InfoContext(ctx, "bot started", slog.String("username", h.bot.Self.UserName))

	if err := h.gateway.SetCommands(ctx); err != nil {
		h.log.WarnContext(ctx, "failed to register commands", slog.Any("error", err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = h.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query", "inline_query"}

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("bot stopping")
			h.bot.StopReceivingUpdates()
			h.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				h.wg.Wait()
				return nil
			}
			h.dispatch(ctx, update)
		}
	}
}

func (h *BotHandler) dispatch(ctx context.Context, update tgbotapi.Update) {
	var handle func()
	switch {
	case update.InlineQuery != nil:
		handle = func() { h.handleInlineQuery(ctx, update.InlineQuery) }
	case update.CallbackQuery != nil:
		handle = func() { h.handleCallback(ctx, update.CallbackQuery) }
	case update.Message != nil:
		handle = func() { h.handleMessage(ctx, update.Message) }
	default:
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				h.log.ErrorContext(ctx, "handler panic", slog.Any("panic", r), slog.Int("update_id", update.UpdateID))
			}
		}()
		handle()
	}()
}

// handleMessage routes commands, documents, photos and text
func (h *BotHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}

	in := entity.Incoming{
		UserID:    message.From.ID,
		ChatID:    message.Chat.ID,
		MessageID: message.MessageID,
		Text:      message.Text,
	}

	switch {
	case message.IsCommand():
		h.handleCommand(ctx, message, in)
	case message.Document != nil:
		h.handleDocumentMessage(ctx, message, in)
	case len(message.Photo) > 0:
		in.PhotoID = largestPhoto(message.Photo)
		if !h.dialogue.HandlePhoto(ctx, in) {
			h.reply(ctx, in.ChatID, photoNoFlowText)
		}
	case message.Text != "":
		if !h.dialogue.HandleText(ctx, in) {
			h.reply(ctx, in.ChatID, noFlowText)
		}
	}
}

// handleCommand bot commands
func (h *BotHandler) handleCommand(ctx context.Context, message *tgbotapi.Message, in entity.Incoming) {
	h.log.DebugContext(ctx, "command", slog.Int64("user_id", in.UserID), slog.String("command", message.Command()))

	switch message.Command() {
	case "start":
		if message.CommandArguments() == "inline_help" {
			h.dialogue.Help(ctx, in)
			return
		}
		h.dialogue.Start(ctx, in)
	case "help":
		h.dialogue.Help(ctx, in)
	case "list":
		h.dialogue.List(ctx, in)
	case "add":
		h.dialogue.StartAdd(ctx, in)
	case "cancel":
		in.MessageID = 0
		h.dialogue.Cancel(ctx, in)
	case "export":
		h.handleExportCommand(ctx, in)
	default:
		h.reply(ctx, in.ChatID, unknownCommandText)
	}
}

// handleDocumentMessage spreadsheet import
func (h *BotHandler) handleDocumentMessage(ctx context.Context, message *tgbotapi.Message, in entity.Incoming) {
	doc := message.Document

	if doc.FileSize > maxImportSize {
		h.reply(ctx, in.ChatID, "❌ Размер файла не должен превышать 5 МБ.")
		return
	}
	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".xlsx") {
		h.reply(ctx, in.ChatID, "❌ Принимаются только файлы Excel (.xlsx).")
		return
	}

	h.reply(ctx, in.ChatID, "⏳ Загружаю и обрабатываю файл...")

	data, err := h.gateway.DownloadPhoto(ctx, doc.FileID)
	if err != nil {
		h.log.ErrorContext(ctx, "file download failed", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		h.reply(ctx, in.ChatID, "❌ Не удалось загрузить файл.")
		return
	}

	res, err := h.inventory.Import(ctx, in.UserID, data)
	if err != nil {
		h.log.ErrorContext(ctx, "import failed", slog.Int64("user_id", in.UserID), slog.String("file", doc.FileName), slog.Any("error", err))
		h.reply(ctx, in.ChatID, "❌ Не удалось импортировать файл. Проверьте формат: название, количество, примечания, срок годности.")
		return
	}
	h.reply(ctx, in.ChatID, res.Summary())
}

// handleExportCommand /export
func (h *BotHandler) handleExportCommand(ctx context.Context, in entity.Incoming) {
	data, err := h.inventory.Export(ctx, in.UserID)
	if err != nil {
		h.log.ErrorContext(ctx, "export failed", slog.Int64("user_id", in.UserID), slog.Any("error", err))
		h.reply(ctx, in.ChatID, "❌ Не удалось выгрузить аптечку. Попробуйте позже.")
		return
	}
	if err := h.gateway.SendDocument(ctx, in.ChatID, exportFileName, data); err != nil {
		h.log.ErrorContext(ctx, "export send failed", slog.Int64("user_id", in.UserID), slog.Any("error", err))
	}
}

// handleCallback button presses
func (h *BotHandler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	var origin entity.MessageIdentity
	switch {
	case cq.InlineMessageID != "":
		origin = entity.Inline(cq.InlineMessageID)
	case cq.Message != nil && cq.Message.Chat != nil:
		origin = entity.Ordinary(cq.Message.Chat.ID, cq.Message.MessageID)
	}

	action, err := DecodeAction(cq.Data)
	if err != nil {
		h.log.WarnContext(ctx, "bad callback data", slog.Int64("user_id", cq.From.ID), slog.String("data", cq.Data), slog.Any("error", err))
		h.answerCallback(ctx, cq.ID, entity.CallbackReply{Text: "Ошибка данных!", Alert: true})
		return
	}
	if origin.IsZero() {
		h.answerCallback(ctx, cq.ID, entity.CallbackReply{Text: "Сообщение устарело.", Alert: true})
		return
	}

	reply := h.dialogue.HandleCallback(ctx, entity.CallbackQuery{
		UserID: cq.From.ID,
		Origin: origin,
		Action: action,
	})
	h.answerCallback(ctx, cq.ID, reply)
}

func (h *BotHandler) answerCallback(ctx context.Context, id string, reply entity.CallbackReply) {
	callback := tgbotapi.NewCallback(id, reply.Text)
	if reply.Alert {
		callback = tgbotapi.NewCallbackWithAlert(id, reply.Text)
	}
	if _, err := h.bot.Request(callback); err != nil {
		h.log.WarnContext(ctx, "callback answer failed", slog.Any("error", err))
	}
}

// handleInlineQuery inline search
func (h *BotHandler) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	err := h.presenter.AnswerInline(ctx, entity.InlineQuery{
		ID:     q.ID,
		UserID: q.From.ID,
		Query:  q.Query,
		Offset: q.Offset,
	})
	if err != nil {
		h.log.ErrorContext(ctx, "inline answer failed", slog.Int64("user_id", q.From.ID), slog.Any("error", err))
	}
}

func (h *BotHandler) reply(ctx context.Context, chatID int64, text string) {
	if _, err := h.gateway.Send(ctx, chatID, entity.View{Text: text}); err != nil {
		h.log.ErrorContext(ctx, "send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// largestPhoto file ID of the biggest size Telegram offers.
func largestPhoto(sizes []tgbotapi.PhotoSize) string {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best.FileID
}

