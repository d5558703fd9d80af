package database

import (
	"context"
	"time"

	"github.com/pathakanu/chronobot/internal/model"
	"gorm.io/gorm"
)

// Error wraps a persistence failure with the operation that caused it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store implements the reminder and trusted-chat operations on top of GORM.
// Every method is a single statement, so each call is atomic.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open, migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListTrustedIDs returns the ids of every trusted conversation.
func (s *Store) ListTrustedIDs(ctx context.Context) ([]model.ChatID, error) {
	var ids []model.ChatID
	err := s.db.WithContext(ctx).
		Model(&model.TrustedChat{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, wrap("list trusted chats", err)
}

// InsertTrusted persists a newly trusted conversation.
func (s *Store) InsertTrusted(ctx context.Context, chat *model.TrustedChat) error {
	return wrap("insert trusted chat", s.db.WithContext(ctx).Create(chat).Error)
}

// ListReminders returns the reminders of a conversation in id order.
func (s *Store) ListReminders(ctx context.Context, chat model.ChatID) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("chat = ?", chat).
		Order("id ASC").
		Find(&reminders).Error
	return reminders, wrap("list reminders", err)
}

// ListDue returns every reminder whose due timestamp is strictly before now.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("due < ?", now.Unix()).
		Order("id ASC").
		Find(&reminders).Error
	return reminders, wrap("list due reminders", err)
}

// InsertReminder persists r and fills in its id.
func (s *Store) InsertReminder(ctx context.Context, r *model.Reminder) error {
	return wrap("insert reminder", s.db.WithContext(ctx).Create(r).Error)
}

// UpdateDue moves a reminder to a new due timestamp. It reports whether the row existed.
func (s *Store) UpdateDue(ctx context.Context, id int64, due time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Reminder{}).
		Where("id = ?", id).
		Update("due", due.Unix())
	if res.Error != nil {
		return false, wrap("update reminder", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteReminder removes a reminder by id. It reports whether the row existed.
func (s *Store) DeleteReminder(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return false, wrap("delete reminder", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeleteReminderForChat removes a reminder only if it belongs to chat.
func (s *Store) DeleteReminderForChat(ctx context.Context, id int64, chat model.ChatID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND chat = ?", id, chat).
		Delete(&model.Reminder{})
	if res.Error != nil {
		return false, wrap("delete chat reminder", res.Error)
	}
	return res.RowsAffected == 1, nil
}
