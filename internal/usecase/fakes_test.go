package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/yourusername/medkit-bot/internal/domain/entity"
	"github.com/yourusername/medkit-bot/internal/domain/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	ChatID int64
	View   entity.View
}

type editedMessage struct {
	ID   entity.MessageIdentity
	View entity.View
}

// fakeGateway records traffic. EditFn, when set, decides the edit outcome.
type fakeGateway struct {
	mu       sync.Mutex
	nextID   int
	sent     []sentMessage
	edits    []editedMessage
	deleted  []int
	answers  []entity.InlineAnswer
	docs     map[string][]byte
	photo    []byte
	photoErr error

	EditFn func(id entity.MessageIdentity) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100, docs: make(map[string][]byte)}
}

func (g *fakeGateway) Send(ctx context.Context, chatID int64, view entity.View) (entity.MessageIdentity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.sent = append(g.sent, sentMessage{ChatID: chatID, View: view})
	return entity.Ordinary(chatID, g.nextID), nil
}

func (g *fakeGateway) Edit(ctx context.Context, id entity.MessageIdentity, view entity.View) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.EditFn != nil {
		if err := g.EditFn(id); err != nil {
			return err
		}
	}
	g.edits = append(g.edits, editedMessage{ID: id, View: view})
	return nil
}

func (g *fakeGateway) Delete(ctx context.Context, chatID int64, messageID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, messageID)
}

func (g *fakeGateway) AnswerInline(ctx context.Context, answer entity.InlineAnswer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, answer)
	return nil
}

func (g *fakeGateway) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	return g.photo, g.photoErr
}

func (g *fakeGateway) SendDocument(ctx context.Context, chatID int64, name string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.docs[name] = data
	return nil
}

func (g *fakeGateway) lastEdit() editedMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.edits) == 0 {
		return editedMessage{}
	}
	return g.edits[len(g.edits)-1]
}

func (g *fakeGateway) lastSent() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return sentMessage{}
	}
	return g.sent[len(g.sent)-1]
}

// fakeLookup func-field barcode lookup
type fakeLookup struct {
	DecodeFn  func(ctx context.Context, image []byte) (string, error)
	ResolveFn func(ctx context.Context, code string) ([]string, error)
}

func (l *fakeLookup) Decode(ctx context.Context, image []byte) (string, error) {
	if l.DecodeFn == nil {
		return "", repository.ErrNoBarcode
	}
	return l.DecodeFn(ctx, image)
}

func (l *fakeLookup) ResolveNames(ctx context.Context, code string) ([]string, error) {
	if l.ResolveFn == nil {
		return nil, nil
	}
	return l.ResolveFn(ctx, code)
}

// fixedNow 2026-03-10 12:00 UTC
func fixedNow() time.Time {
	return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
}

// findButton first button whose action equals want.
func findButton(kb entity.Keyboard, want entity.Action) (entity.Button, bool) {
	for _, row := range kb {
		for _, b := range row {
			if b.Action == want {
				return b, true
			}
		}
	}
	return entity.Button{}, false
}

func hasAction(kb entity.Keyboard, match func(entity.Action) bool) bool {
	for _, row := range kb {
		for _, b := range row {
			if b.Action != nil && match(b.Action) {
				return true
			}
		}
	}
	return false
}
