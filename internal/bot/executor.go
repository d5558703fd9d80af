package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/chronobot/internal/chat"
	"github.com/pathakanu/chronobot/internal/command"
	"github.com/pathakanu/chronobot/internal/config"
	"github.com/pathakanu/chronobot/internal/model"
	"go.uber.org/zap"
)

// ReminderStore is the persistence the executor needs.
type ReminderStore interface {
	InsertReminder(ctx context.Context, r *model.Reminder) error
	ListReminders(ctx context.Context, chat model.ChatID) ([]model.Reminder, error)
	DeleteReminderForChat(ctx context.Context, id int64, chat model.ChatID) (bool, error)
}

// Executor applies parsed actions to the store and replies to the chat.
type Executor struct {
	store     ReminderStore
	messenger chat.Messenger
	messages  config.Messages
	loc       *time.Location
	logger    *zap.Logger
}

// NewExecutor builds an executor that renders due dates in loc.
func NewExecutor(store ReminderStore, messenger chat.Messenger, messages config.Messages, loc *time.Location, logger *zap.Logger) *Executor {
	return &Executor{
		store:     store,
		messenger: messenger,
		messages:  messages,
		loc:       loc,
		logger:    logger,
	}
}

// Execute runs action. Store failures are returned without replying. A reply
// that fails after the store was changed is returned as a *chat.SendError and
// the change is kept.
func (e *Executor) Execute(ctx context.Context, action command.Action) error {
	switch a := action.(type) {
	case command.AddReminder:
		return e.add(ctx, a)
	case command.RemoveReminder:
		return e.remove(ctx, a)
	case command.ListReminders:
		return e.list(ctx, a)
	default:
		return fmt.Errorf("unknown action %T", action)
	}
}

func (e *Executor) add(ctx context.Context, a command.AddReminder) error {
	r := model.NewReminder(a.ChatID, a.Due, a.Recurrence, a.Message)
	if err := e.store.InsertReminder(ctx, r); err != nil {
		return fmt.Errorf("add reminder: %w", err)
	}
	e.logger.Info("reminder added", zap.Int64("chat", int64(a.ChatID)), zap.Int64("id", r.ID))
	return e.reply(ctx, a.ChatID, e.messages.AddedMessage()+"\n"+r.Summary(e.loc))
}

func (e *Executor) remove(ctx context.Context, a command.RemoveReminder) error {
	removed, err := e.store.DeleteReminderForChat(ctx, a.ID, a.ChatID)
	if err != nil {
		return fmt.Errorf("remove reminder %d: %w", a.ID, err)
	}
	if !removed {
		return e.reply(ctx, a.ChatID, e.messages.NotFoundMessage())
	}
	e.logger.Info("reminder removed", zap.Int64("chat", int64(a.ChatID)), zap.Int64("id", a.ID))
	return e.reply(ctx, a.ChatID, e.messages.RemovedMessage())
}

func (e *Executor) list(ctx context.Context, a command.ListReminders) error {
	reminders, err := e.store.ListReminders(ctx, a.ChatID)
	if err != nil {
		return fmt.Errorf("list reminders: %w", err)
	}
	if len(reminders) == 0 {
		return e.reply(ctx, a.ChatID, e.messages.EmptyMessage())
	}

	lines := make([]string, 0, len(reminders)+1)
	lines = append(lines, e.messages.ListHeaderMessage())
	for _, r := range reminders {
		lines = append(lines, r.Line(e.loc))
	}
	return e.reply(ctx, a.ChatID, strings.Join(lines, "\n"))
}

func (e *Executor) reply(ctx context.Context, id model.ChatID, text string) error {
	err := e.messenger.Send(ctx, id, text)
	if err == nil {
		return nil
	}
	var sendErr *chat.SendError
	if errors.As(err, &sendErr) {
		return err
	}
	return &chat.SendError{Chat: id, Err: err}
}
