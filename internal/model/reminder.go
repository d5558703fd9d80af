package model

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/chronobot/internal/recurrence"
)

// DueLayout is how due timestamps are shown to users.
const DueLayout = "2006-01-02 15:04"

// ChatID identifies a conversation. For WhatsApp it is the sender's number
// without the leading plus sign.
type ChatID int64

// Reminder represents a scheduled message for a conversation.
type Reminder struct {
	ID         int64         `gorm:"primaryKey"`
	Due        int64         `gorm:"index;not null"`
	Recurrence sql.NullInt32 `gorm:"column:recurrence"`
	ChatID     ChatID        `gorm:"column:chat;index;not null"`
	Message    string        `gorm:"type:text;not null"`
}

// NewReminder builds an unsaved reminder.
func NewReminder(chat ChatID, due time.Time, rec *recurrence.Recurrence, message string) *Reminder {
	r := &Reminder{
		Due:     due.Unix(),
		ChatID:  chat,
		Message: message,
	}
	if rec != nil {
		r.Recurrence = sql.NullInt32{Int32: rec.Pack(), Valid: true}
	}
	return r
}

// DueAt returns the due timestamp in loc.
func (r Reminder) DueAt(loc *time.Location) time.Time {
	return time.Unix(r.Due, 0).In(loc)
}

// Repeat decodes the stored recurrence. recurring is false for one-shot reminders.
func (r Reminder) Repeat() (rec recurrence.Recurrence, recurring bool, err error) {
	if !r.Recurrence.Valid {
		return recurrence.Recurrence{}, false, nil
	}
	rec, err = recurrence.Unpack(r.Recurrence.Int32)
	if err != nil {
		return recurrence.Recurrence{}, true, fmt.Errorf("reminder %d: %w", r.ID, err)
	}
	return rec, true, nil
}

// Summary renders "due [recurrence]: message".
func (r Reminder) Summary(loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(r.DueAt(loc).Format(DueLayout))
	if rec, recurring, err := r.Repeat(); recurring && err == nil {
		sb.WriteString(" ")
		sb.WriteString(rec.String())
	}
	sb.WriteString(": ")
	sb.WriteString(r.Message)
	return sb.String()
}

// Line renders the summary prefixed with the reminder id, as used in listings.
func (r Reminder) Line(loc *time.Location) string {
	return fmt.Sprintf("(%d) %s", r.ID, r.Summary(loc))
}
