package entity

import "fmt"

// MessageIdentity addresses a bot message: either an ordinary chat message
// or an inline message known only by its token.
type MessageIdentity struct {
	ChatID    int64
	MessageID int
	InlineID  string
}

// Ordinary identity of a message in a chat.
func Ordinary(chatID int64, messageID int) MessageIdentity {
	return MessageIdentity{ChatID: chatID, MessageID: messageID}
}

// Inline identity of a message sent through inline mode.
func Inline(token string) MessageIdentity {
	return MessageIdentity{InlineID: token}
}

// IsInline reports whether the identity is an inline token.
func (m MessageIdentity) IsInline() bool {
	return m.InlineID != ""
}

// IsZero reports whether the identity points nowhere.
func (m MessageIdentity) IsZero() bool {
	return m.InlineID == "" && (m.ChatID == 0 || m.MessageID == 0)
}

func (m MessageIdentity) String() string {
	if m.IsInline() {
		return "inline:" + m.InlineID
	}
	return fmt.Sprintf("%d/%d", m.ChatID, m.MessageID)
}

// Button one keyboard button. Exactly one of Action or SwitchInline is used.
type Button struct {
	Text         string
	Action       Action
	SwitchInline *string // switch_inline_query_current_chat
}

// Keyboard rows of inline buttons
type Keyboard [][]Button

// Row convenience constructor for a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Btn button bound to an action.
func Btn(text string, action Action) Button {
	return Button{Text: text, Action: action}
}

// View text and keyboard to render on a message.
type View struct {
	Text     string
	Markdown bool
	Keyboard Keyboard
}

// InlineArticle one inline search result
type InlineArticle struct {
	ID          string
	Title       string
	Description string
	View        View
}

// InlineAnswer answer to an inline query
type InlineAnswer struct {
	QueryID       string
	Results       []InlineArticle
	NextOffset    string
	CacheTime     int
	Personal      bool
	SwitchPMText  string
	SwitchPMParam string
}

// Incoming user message routed to the dialogue engine.
type Incoming struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
	PhotoID   string // largest photo size, if any
}

// CallbackQuery button press routed to the dialogue engine.
type CallbackQuery struct {
	UserID int64
	Origin MessageIdentity
	Action Action
}

// CallbackReply transient notice shown in answer to a button press.
type CallbackReply struct {
	Text  string
	Alert bool
}

// InlineQuery inline-mode search request.
type InlineQuery struct {
	ID     string
	UserID int64
	Query  string
	Offset string
}
