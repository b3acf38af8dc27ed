package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringList is a helper type for storing a list of strings as JSON text.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	return string(data), err
}

func (l *StringList) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// Has reports whether the list contains s.
func (l StringList) Has(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	GitLabID      *string    `gorm:"uniqueIndex" json:"-"`
	Username      string     `gorm:"uniqueIndex" json:"username" form:"username" binding:"required,alphanum,min=3,max=32"`
	PasswordHash  string     `json:"-"`
	PlainPassword string     `gorm:"-" json:"-" form:"plain_password" binding:"omitempty,min=8,max=72"`
	Nickname      string     `json:"nickname" form:"nickname" binding:"max=64"`
	Email         string     `json:"email" form:"email" binding:"omitempty,email"`
	Roles         StringList `gorm:"type:text" json:"roles" form:"roles"`
	BannedUntil   *time.Time `json:"banned_until"`
	BanReason     string     `json:"ban_reason" form:"ban_reason" binding:"max=255"`
}

// IsBanned reports whether the user is banned at t.
func (u *User) IsBanned(t time.Time) bool {
	return u.BannedUntil != nil && u.BannedUntil.After(t)
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Contest struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name        string    `json:"name" form:"name" binding:"required,max=128"`
	Description string    `gorm:"type:text" json:"description" form:"description"`
	StartTime   time.Time `json:"start_time" form:"start_time" time_format:"2006-01-02T15:04" binding:"required"`
	EndTime     time.Time `json:"end_time" form:"end_time" time_format:"2006-01-02T15:04" binding:"required,gtfield=StartTime"`

	Announcements []Announcement `gorm:"foreignKey:ContestID;constraint:OnDelete:CASCADE" json:"announcements,omitempty"`
}

func (c *Contest) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Announcement struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ContestID   string `gorm:"index" json:"contest_id"`
	Title       string `json:"title" form:"title" binding:"required,max=200"`
	Description string `gorm:"type:text" json:"description" form:"description" binding:"required"`
	Published   bool   `gorm:"index" json:"published" form:"published"`
}

func (a *Announcement) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// FlashMessage is a one-shot notification waiting for the next page of a session.
type FlashMessage struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	SessionID string `gorm:"index"`
	Category  string
	Key       string
}
