package model

import "fmt"

// TrustedChat is a conversation that answered the password challenge.
type TrustedChat struct {
	ChatID   ChatID  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Username *string `gorm:"type:text"`
	Title    *string `gorm:"type:text"`
}

func (c TrustedChat) String() string {
	s := fmt.Sprintf("%d", c.ChatID)
	if c.Username != nil {
		s += " " + *c.Username
	}
	if c.Title != nil {
		s += " " + *c.Title
	}
	return s
}
