// Package chat holds the transport-neutral types shared by the inbound
// pipeline, the trust gate and the scheduler.
package chat

import (
	"context"
	"fmt"

	"github.com/pathakanu/chronobot/internal/model"
)

// Update is one inbound event from a conversation.
type Update struct {
	Chat model.ChatID
	Text string
	// Joined is set when the event announces the bot was added to the conversation.
	Joined   bool
	Username string
	Title    string
}

// Messenger delivers text to conversations.
type Messenger interface {
	Send(ctx context.Context, chat model.ChatID, text string) error
	// Leave disengages from a conversation. Failures are logged by the
	// implementation, never returned.
	Leave(ctx context.Context, chat model.ChatID)
}

// SendError reports an outbound delivery failure.
type SendError struct {
	Chat model.ChatID
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to chat %d: %v", e.Chat, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
