// Package chattest provides a recording chat.Messenger for tests.
package chattest

import (
	"context"
	"sync"

	"github.com/pathakanu/chronobot/internal/model"
)

// Sent is one recorded outbound message.
type Sent struct {
	Chat model.ChatID
	Text string
}

// Messenger records every Send and Leave. SendErr, when set, is returned for
// chats it maps to and nothing is recorded for them.
type Messenger struct {
	mu      sync.Mutex
	sent    []Sent
	left    []model.ChatID
	SendErr map[model.ChatID]error
}

// NewMessenger returns an empty recording messenger.
func NewMessenger() *Messenger {
	return &Messenger{SendErr: map[model.ChatID]error{}}
}

func (m *Messenger) Send(_ context.Context, chat model.ChatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.SendErr[chat]; err != nil {
		return err
	}
	m.sent = append(m.sent, Sent{Chat: chat, Text: text})
	return nil
}

func (m *Messenger) Leave(_ context.Context, chat model.ChatID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, chat)
}

// FailSends makes every Send to chat return err.
func (m *Messenger) FailSends(chat model.ChatID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendErr[chat] = err
}

// Sent returns a copy of the recorded messages.
func (m *Messenger) Sent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sent(nil), m.sent...)
}

// Texts returns the texts sent to chat, in order.
func (m *Messenger) Texts(chat model.ChatID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.Chat == chat {
			out = append(out, s.Text)
		}
	}
	return out
}

// Left returns the chats the messenger was asked to leave.
func (m *Messenger) Left() []model.ChatID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ChatID(nil), m.left...)
}

// Reset forgets everything recorded so far.
func (m *Messenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.left = nil
}
