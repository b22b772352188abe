package models

// User is a registered account. The identity is immutable; username,
// email and avatar can change via profile edit.
type User struct {
	ID           int    `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Avatar       string `db:"avatar" json:"avatar"`
}
