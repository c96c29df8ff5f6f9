package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"secureNotes/internal/db"
	"secureNotes/models"
)

// NoteRepository stores notes. created_at is set by the store on insert and
// never written afterwards.
type NoteRepository struct {
	d *db.DB
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(d *db.DB) *NoteRepository {
	return &NoteRepository{d: d}
}

const noteColumns = `notes.id, notes.user_id, notes.title, notes.content, notes.created_at`

// Create inserts a note and reads it back to capture the id and created_at.
// A UserID that references no user fails with a foreign key violation.
func (r *NoteRepository) Create(ctx context.Context, n *models.Note) (*models.Note, error) {
	if n == nil {
		return nil, errors.New("note is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id int64
	err := r.d.QueryRowContext(ctx, r.d.Rebind(`INSERT INTO notes (user_id, title, content) VALUES (?, ?, ?) RETURNING id`),
		nullInt64(n.UserID), nullString(n.Title), nullString(n.Content)).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert note")
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created note not found: id=%d", id)
	}
	return created, nil
}

// GetByID fetches a note by its ID.
func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.d.QueryRowContext(ctx, r.d.Rebind(`SELECT `+noteColumns+` FROM notes WHERE id = ?`), id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}

// ListByUser returns the user's notes, newest first.
func (r *NoteRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Note, error) {
	limit, offset = clampPage(limit, offset)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.d.QueryContext(ctx, r.d.Rebind(`SELECT `+noteColumns+` FROM notes WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`),
		userID, limit, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "list notes of user %d", userID)
	}
	defer rows.Close()
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAll returns every note with its author's username, newest first.
// Notes without an owner are included with a nil Username.
func (r *NoteRepository) ListAll(ctx context.Context, limit, offset int) ([]models.NoteWithAuthor, error) {
	limit, offset = clampPage(limit, offset)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.d.QueryContext(ctx, r.d.Rebind(`SELECT `+noteColumns+`, users.username
		FROM notes
		LEFT JOIN users ON notes.user_id = users.id
		ORDER BY notes.created_at DESC, notes.id DESC
		LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list notes")
	}
	defer rows.Close()
	var out []models.NoteWithAuthor
	for rows.Next() {
		var (
			nw       models.NoteWithAuthor
			userID   sql.NullInt64
			title    sql.NullString
			content  sql.NullString
			created  sql.NullTime
			username sql.NullString
		)
		if err := rows.Scan(&nw.ID, &userID, &title, &content, &created, &username); err != nil {
			return nil, err
		}
		fillNote(&nw.Note, userID, title, content, created)
		if username.Valid {
			v := username.String
			nw.Username = &v
		}
		out = append(out, nw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NoteRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	if err := r.d.QueryRowContext(ctx, r.d.Rebind(`SELECT COUNT(*) FROM notes WHERE user_id = ?`), userID).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count notes of user %d", userID)
	}
	return n, nil
}

// Update replaces title and content. Nil clears the column.
func (r *NoteRepository) Update(ctx context.Context, id int64, title, content *string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.d.ExecContext(ctx, r.d.Rebind(`UPDATE notes SET title = ?, content = ? WHERE id = ?`),
		nullString(title), nullString(content), id)
	if err != nil {
		return errors.Wrapf(err, "update note %d", id)
	}
	return expectAffected(res)
}

// Delete removes a note by ID.
func (r *NoteRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.d.ExecContext(ctx, r.d.Rebind(`DELETE FROM notes WHERE id = ?`), id)
	if err != nil {
		return errors.Wrapf(err, "delete note %d", id)
	}
	return expectAffected(res)
}

func scanNote(s rowScanner) (*models.Note, error) {
	var (
		n       models.Note
		userID  sql.NullInt64
		title   sql.NullString
		content sql.NullString
		created sql.NullTime
	)
	if err := s.Scan(&n.ID, &userID, &title, &content, &created); err != nil {
		return nil, err
	}
	fillNote(&n, userID, title, content, created)
	return &n, nil
}

func fillNote(n *models.Note, userID sql.NullInt64, title, content sql.NullString, created sql.NullTime) {
	if userID.Valid {
		v := userID.Int64
		n.UserID = &v
	}
	if title.Valid {
		v := title.String
		n.Title = &v
	}
	if content.Valid {
		v := content.String
		n.Content = &v
	}
	if created.Valid {
		n.CreatedAt = created.Time
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
