package domain

import "time"

// User represents a Telegram user known to the bot.
type User struct {
	TelegramID        int64     `db:"telegram_id" json:"telegram_id"`
	FirstName         string    `db:"first_name" json:"first_name"`
	Username          string    `db:"username" json:"username,omitempty"`
	Language          string    `db:"language" json:"language,omitempty"`
	PreferredReferrer int64     `db:"preferred_referrer_id" json:"preferred_referrer_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// DisplayName returns the best human readable name for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return ""
}

// HasReferrer reports whether the user stored a preferred referrer.
func (u *User) HasReferrer() bool {
	return u != nil && u.PreferredReferrer != 0
}
