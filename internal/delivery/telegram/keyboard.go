package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// buildMarkup converts a keyboard into Bot API markup; nil for no keyboard.
func buildMarkup(kb entity.Keyboard) (*tgbotapi.InlineKeyboardMarkup, error) {
	if len(kb) == 0 {
		return nil, nil
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.SwitchInline != nil {
				query := *b.SwitchInline
				buttons = append(buttons, tgbotapi.InlineKeyboardButton{
					Text:                         b.Text,
					SwitchInlineQueryCurrentChat: &query,
				})
				continue
			}
			data, err := EncodeAction(b.Action)
			if err != nil {
				return nil, fmt.Errorf("button %q: %w", b.Text, err)
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, data))
		}
		rows = append(rows, buttons)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup, nil
}

func parseMode(v entity.View) string {
	if v.Markdown {
		return tgbotapi.ModeMarkdown
	}
	return ""
}
