package services

import (
	"context"
	"sync"
)

// fakeTransport is an in-memory Transport that records every outbound
// call and allocates message ids from a counter. Individual operations
// can be made to fail by setting the matching error field.
type fakeTransport struct {
	mu     sync.Mutex
	nextID int

	sent      []fakeMessage // SendText, Reply, SendKeyboard, media sends
	forwards  []fakeForward
	edits     []fakeEdit
	deletes   []fakeDelete
	keyboards []fakeKeyboard

	sendErr    error // fails every send-style call
	textErr    error // fails SendText only
	forwardErr error
	editErr    error
	deleteErr  error
}

type fakeMessage struct {
	ID      int
	Kind    string // "text", "reply", "sticker", "document", "photo", "keyboard"
	ChatID  int64
	ReplyTo int
	Text    string
	FileID  string
	Caption string
}

type fakeForward struct {
	ID       int
	ToChat   int64
	FromChat int64
	MsgID    int
}

type fakeEdit struct {
	ChatID int64
	MsgID  int
	Text   string
}

type fakeDelete struct {
	ChatID int64
	MsgID  int
}

type fakeKeyboard struct {
	Options []KeyboardOption
}

func newFakeTransport() *fakeTransport { return &fakeTransport{nextID: 1000} }

func (f *fakeTransport) allocID() int {
	f.nextID++
	return f.nextID
}

func (f *fakeTransport) record(m fakeMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	m.ID = f.allocID()
	f.sent = append(f.sent, m)
	return m.ID, nil
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	err := f.textErr
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.record(fakeMessage{Kind: "text", ChatID: chatID, Text: text})
}

func (f *fakeTransport) Reply(_ context.Context, chatID int64, replyToID int, text string) (int, error) {
	return f.record(fakeMessage{Kind: "reply", ChatID: chatID, ReplyTo: replyToID, Text: text})
}

func (f *fakeTransport) SendSticker(_ context.Context, chatID int64, fileID string) (int, error) {
	return f.record(fakeMessage{Kind: "sticker", ChatID: chatID, FileID: fileID})
}

func (f *fakeTransport) SendDocument(_ context.Context, chatID int64, fileID, caption string) (int, error) {
	return f.record(fakeMessage{Kind: "document", ChatID: chatID, FileID: fileID, Caption: caption})
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, fileID, caption string) (int, error) {
	return f.record(fakeMessage{Kind: "photo", ChatID: chatID, FileID: fileID, Caption: caption})
}

func (f *fakeTransport) Forward(_ context.Context, toChat, fromChat int64, msgID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forwardErr != nil {
		return 0, f.forwardErr
	}
	id := f.allocID()
	f.forwards = append(f.forwards, fakeForward{ID: id, ToChat: toChat, FromChat: fromChat, MsgID: msgID})
	return id, nil
}

func (f *fakeTransport) EditText(_ context.Context, chatID int64, msgID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, fakeEdit{ChatID: chatID, MsgID: msgID, Text: text})
	return nil
}

func (f *fakeTransport) Delete(_ context.Context, chatID int64, msgID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fakeDelete{ChatID: chatID, MsgID: msgID})
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return nil
}

func (f *fakeTransport) SendKeyboard(_ context.Context, chatID int64, replyToID int, text string, options []KeyboardOption) (int, error) {
	f.mu.Lock()
	f.keyboards = append(f.keyboards, fakeKeyboard{Options: options})
	f.mu.Unlock()
	return f.record(fakeMessage{Kind: "keyboard", ChatID: chatID, ReplyTo: replyToID, Text: text})
}

// lastSent returns the most recent recorded send, or nil.
func (f *fakeTransport) lastSent() *fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	m := f.sent[len(f.sent)-1]
	return &m
}

// sentOfKind returns all recorded sends of one kind.
func (f *fakeTransport) sentOfKind(kind string) []fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeMessage
	for _, m := range f.sent {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}
