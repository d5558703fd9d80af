// Package trust admits conversations to the command pipeline once they have
// answered the shared-password challenge.
package trust

import (
	"context"
	"fmt"
	"sync"

	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/model"
	"go.uber.org/zap"
)

// Store persists trusted conversations.
type Store interface {
	ListTrustedIDs(ctx context.Context) ([]model.ChatID, error)
	InsertTrusted(ctx context.Context, chat *model.TrustedChat) error
}

// Authentication holds the challenge strings.
type Authentication struct {
	Prompt     string
	Password   string
	Authorized string
}

// Gate decides whether an inbound update may reach the command parser.
// The cache only ever grows, and only after the store accepted the grant,
// so every cached id is also persisted.
type Gate struct {
	store     Store
	messenger chat.Messenger
	auth      Authentication
	logger    *zap.Logger

	mu      sync.RWMutex
	trusted map[model.ChatID]struct{}
}

// New warms the trusted cache from the store.
func New(ctx context.Context, store Store, messenger chat.Messenger, auth Authentication, logger *zap.Logger) (*Gate, error) {
	ids, err := store.ListTrustedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading trusted chats: %w", err)
	}

	trusted := make(map[model.ChatID]struct{}, len(ids))
	for _, id := range ids {
		trusted[id] = struct{}{}
	}

	return &Gate{
		store:     store,
		messenger: messenger,
		auth:      auth,
		logger:    logger,
		trusted:   trusted,
	}, nil
}

// Trusted reports whether chat has been authorized.
func (g *Gate) Trusted(id model.ChatID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.trusted[id]
	return ok
}

// TrustedIDs returns a snapshot of the cache.
func (g *Gate) TrustedIDs() []model.ChatID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]model.ChatID, 0, len(g.trusted))
	for id := range g.trusted {
		ids = append(ids, id)
	}
	return ids
}

// Admit returns true only when the conversation was already trusted before
// this update arrived. A join event triggers the password prompt. From an
// untrusted conversation, the exact password grants trust (the password
// message itself is consumed and not admitted) and anything else makes the
// bot leave.
func (g *Gate) Admit(ctx context.Context, u chat.Update) bool {
	logger := g.logger.With(zap.Int64("chat", int64(u.Chat)))

	if u.Joined {
		logger.Warn("added to a new chat, requesting password",
			zap.String("username", u.Username),
			zap.String("title", u.Title),
		)
		if err := g.messenger.Send(ctx, u.Chat, g.auth.Prompt); err != nil {
			logger.Warn("failed to send password prompt", zap.Error(err))
		}
		return false
	}

	trusted := g.Trusted(u.Chat)
	if trusted {
		return true
	}

	if u.Text != g.auth.Password {
		logger.Info("untrusted chat failed the password challenge, leaving")
		g.messenger.Leave(ctx, u.Chat)
		return false
	}

	entry := &model.TrustedChat{
		ChatID:   u.Chat,
		Username: optional(u.Username),
		Title:    optional(u.Title),
	}
	if err := g.store.InsertTrusted(ctx, entry); err != nil {
		logger.Warn("failed to add trusted chat", zap.Stringer("entry", entry), zap.Error(err))
		return false
	}

	g.mu.Lock()
	g.trusted[u.Chat] = struct{}{}
	g.mu.Unlock()

	logger.Info("added trusted chat", zap.Stringer("entry", entry))

	if err := g.messenger.Send(ctx, u.Chat, g.auth.Authorized); err != nil {
		logger.Warn("failed to send authorization confirmation", zap.Error(err))
	}
	return false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
