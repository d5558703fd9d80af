package command

import (
	"time"

	"github.com/pathakanu/chronobot/internal/model"
	"github.com/pathakanu/chronobot/internal/recurrence"
)

// Action is a parsed command. The set of implementations is closed:
// AddReminder, RemoveReminder and ListReminders.
type Action interface {
	Chat() model.ChatID
	action()
}

// AddReminder schedules Message for Due in the originating chat.
type AddReminder struct {
	Due        time.Time
	Recurrence *recurrence.Recurrence
	Message    string
	ChatID     model.ChatID
}

// RemoveReminder deletes reminder ID if it belongs to the originating chat.
type RemoveReminder struct {
	ID     int64
	ChatID model.ChatID
}

// ListReminders lists the reminders of the originating chat.
type ListReminders struct {
	ChatID model.ChatID
}

func (a AddReminder) Chat() model.ChatID    { return a.ChatID }
func (a RemoveReminder) Chat() model.ChatID { return a.ChatID }
func (a ListReminders) Chat() model.ChatID  { return a.ChatID }

func (AddReminder) action()    {}
func (RemoveReminder) action() {}
func (ListReminders) action()  {}
