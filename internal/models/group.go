package models

import "time"

// Group is a chat group. A group only exists while it has at least one
// member; the last leave deletes it.
type Group struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy int       `db:"created_by" json:"created_by"`
	Avatar    string    `db:"avatar" json:"avatar"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
