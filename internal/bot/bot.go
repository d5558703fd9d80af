package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/command"
	"github.com/pathakanu/chronobot/internal/config"
	myopenai "github.com/pathakanu/chronobot/internal/openai"
	"github.com/pathakanu/chronobot/internal/trust"
	"go.uber.org/zap"
)

const suggestionTimeout = 15 * time.Second

// Suggester proposes a corrected command for text that did not parse.
type Suggester interface {
	SuggestCommand(ctx context.Context, text, usage string, today time.Time) (string, error)
}

// Bot runs inbound updates through the trust gate, the parser and the executor.
type Bot struct {
	gate      *trust.Gate
	parser    *command.Parser
	executor  *Executor
	messenger chat.Messenger
	messages  config.Messages
	suggester Suggester
	loc       *time.Location
	logger    *zap.Logger
}

// New creates a fully configured Bot instance. suggester may be nil.
func New(gate *trust.Gate, parser *command.Parser, executor *Executor, suggester Suggester, logger *zap.Logger) *Bot {
	return &Bot{
		gate:      gate,
		parser:    parser,
		executor:  executor,
		messenger: executor.messenger,
		messages:  executor.messages,
		suggester: suggester,
		loc:       executor.loc,
		logger:    logger,
	}
}

// Run handles updates one at a time, in arrival order, until ctx is done or
// updates is closed. Failures are logged and never stop the loop.
func (b *Bot) Run(ctx context.Context, updates <-chan chat.Update) error {
	b.logger.Info("bot online")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.Handle(ctx, u)
		}
	}
}

// Handle processes a single update end to end.
func (b *Bot) Handle(ctx context.Context, u chat.Update) {
	if !b.gate.Admit(ctx, u) {
		return
	}
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return
	}

	logger := b.logger.With(zap.Int64("chat", int64(u.Chat)))

	action, err := b.parser.Parse(u.Chat, u.Text)
	if err != nil {
		logger.Debug("message not understood", zap.Error(err))
		if err := b.messenger.Send(ctx, u.Chat, b.misunderstood(ctx, text)); err != nil {
			logger.Warn("failed to send misunderstood reply", zap.Error(err))
		}
		return
	}

	if err := b.executor.Execute(ctx, action); err != nil {
		var sendErr *chat.SendError
		if errors.As(err, &sendErr) {
			logger.Warn("failed to reply", zap.Error(err))
			return
		}
		logger.Error("failed to execute command", zap.Error(err))
	}
}

// misunderstood picks a misunderstood phrase and, when a suggester is set,
// appends its proposal if the proposal is itself a valid command.
func (b *Bot) misunderstood(ctx context.Context, text string) string {
	reply := b.messages.MisunderstoodMessage()
	if b.suggester == nil {
		return reply
	}

	ctx, cancel := context.WithTimeout(ctx, suggestionTimeout)
	defer cancel()

	suggestion, err := b.suggester.SuggestCommand(ctx, text, b.parser.Usage(), time.Now().In(b.loc))
	if err != nil {
		if !errors.Is(err, myopenai.ErrClientNotInitialised) && !errors.Is(err, myopenai.ErrNoSuggestion) {
			b.logger.Warn("command suggestion error", zap.Error(err))
		}
		return reply
	}
	if _, err := b.parser.Parse(0, suggestion); err != nil {
		b.logger.Debug("discarding unparsable suggestion", zap.String("suggestion", suggestion))
		return reply
	}
	return reply + "\n\n" + suggestion
}
