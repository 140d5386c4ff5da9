package usecase

import (
	"sync"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

// AddStep stage of the add-medicine flow
type AddStep int

const (
	StepName AddStep = iota
	StepQuantity
	StepNotes
	StepExpiry
)

func (s AddStep) String() string {
	switch s {
	case StepName:
		return "waiting_name"
	case StepQuantity:
		return "waiting_quantity"
	case StepNotes:
		return "waiting_notes"
	case StepExpiry:
		return "waiting_expiry"
	}
	return "unknown"
}

// Flow the active dialogue: *AddFlow or *EditFlow.
type Flow interface {
	flow()
}

// AddFlow collects a new medicine field by field.
type AddFlow struct {
	Step  AddStep
	Draft entity.Medicine
}

// EditFlow waits for a new value of one field.
type EditFlow struct {
	TargetID string
	Field    entity.Field
	Original string // record name when the edit started
}

func (*AddFlow) flow()  {}
func (*EditFlow) flow() {}

// BoundIdentity messages a conversation renders onto. The calendar may be
// the same physical message as the prompt.
type BoundIdentity struct {
	Prompt   entity.MessageIdentity
	Calendar entity.MessageIdentity
	Inline   entity.MessageIdentity
}

// Target the message the next render goes to: inline first, then the
// calendar, then the prompt.
func (b BoundIdentity) Target() entity.MessageIdentity {
	switch {
	case !b.Inline.IsZero():
		return b.Inline
	case !b.Calendar.IsZero():
		return b.Calendar
	default:
		return b.Prompt
	}
}

// AcceptsInputFrom reports whether typed input from chatID belongs to this
// conversation. Inline-bound flows accept any chat, since the inline message
// lives outside the user's chat with the bot.
func (b BoundIdentity) AcceptsInputFrom(chatID int64) bool {
	switch {
	case !b.Inline.IsZero(), b.Prompt.IsInline(), b.Prompt.IsZero():
		return true
	default:
		return b.Prompt.ChatID == chatID
	}
}

// Rebind replaces old with fresh wherever it is bound.
func (b *BoundIdentity) Rebind(old, fresh entity.MessageIdentity) {
	if old == fresh {
		return
	}
	if b.Prompt == old {
		b.Prompt = fresh
	}
	if b.Calendar == old {
		b.Calendar = fresh
	}
	if b.Inline == old {
		b.Inline = fresh
	}
}

// Conversation per-user dialogue state
type Conversation struct {
	Flow  Flow
	Bound BoundIdentity
	// Last prompt text, re-rendered when the calendar is navigated.
	PromptText string
}

// conversationStore holds conversations and serializes each user's events.
type conversationStore struct {
	mu    sync.Mutex
	convs map[int64]*Conversation
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newConversationStore() *conversationStore {
	return &conversationStore{
		convs: make(map[int64]*Conversation),
		locks: make(map[int64]*userLock),
	}
}

// Lock serializes events of one user. The returned func releases the lock.
func (s *conversationStore) Lock(userID int64) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *conversationStore) Get(userID int64) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[userID]
}

func (s *conversationStore) Set(userID int64, c *Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[userID] = c
}

func (s *conversationStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, userID)
}
