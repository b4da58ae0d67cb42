package model

import "time"

// User represents a Telegram user record as stored in the `users` table.
// Users are created or refreshed when a Telegram-signed login payload is
// verified; there is no password credential.
//
// Fields:
//
//	ID         – primary key identifier.
//	TelegramID – unique Telegram account identifier.
//	Username   – Telegram username at last login (may be empty).
//	AvatarURL  – profile photo URL at last login (may be empty).
//	CreatedAt  – timestamp of first login.
//	UpdatedAt  – timestamp of last profile refresh.
type User struct {
	ID         int64     // users.id
	TelegramID int64     // users.telegram_id
	Username   string    // users.username
	AvatarURL  string    // users.avatar_url
	CreatedAt  time.Time // users.created_at
	UpdatedAt  time.Time // users.updated_at
}
