package models

import "time"

// Note is a row of the `notes` table. Nullable columns map to pointers.
// UserID references users.id; deleting the user deletes the note.
type Note struct {
	ID        int64     `db:"id" json:"id"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	Title     *string   `db:"title" json:"title,omitempty"`
	Content   *string   `db:"content" json:"content,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoteWithAuthor is a note joined with its owner's username.
// Username is nil when the note has no owner.
type NoteWithAuthor struct {
	Note
	Username *string `db:"username" json:"username,omitempty"`
}
