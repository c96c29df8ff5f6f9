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

type UserRepository struct {
	d *db.DB
}

func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{d: d}
}

const userColumns = `id, username, password, role`

// Create inserts a new user. When u.Role is empty the column default ('user') applies.
// A duplicate username fails with the store's unique violation (see db.IsUniqueViolation).
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	if u.Role != "" && !u.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", u.Role)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		id  int64
		err error
	)
	if u.Role == "" {
		err = r.d.QueryRowContext(ctx, r.d.Rebind(`INSERT INTO users (username, password) VALUES (?, ?) RETURNING id`),
			u.Username, u.Password).Scan(&id)
	} else {
		err = r.d.QueryRowContext(ctx, r.d.Rebind(`INSERT INTO users (username, password, role) VALUES (?, ?, ?) RETURNING id`),
			u.Username, u.Password, string(u.Role)).Scan(&id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "insert user %q", u.Username)
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created user not found: id=%d", id)
	}
	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.d.QueryRowContext(ctx, r.d.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	return scanUser(row)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	row := r.d.QueryRowContext(ctx, r.d.Rebind(`SELECT `+userColumns+` FROM users WHERE username = ?`), username)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	limit, offset = clampPage(limit, offset)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.d.QueryContext(ctx, r.d.Rebind(`SELECT `+userColumns+` FROM users ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	if err := r.d.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return n, nil
}

// Delete removes a user. Their notes go with them (ON DELETE CASCADE).
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.d.ExecContext(ctx, r.d.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return errors.Wrapf(err, "delete user %d", id)
	}
	return expectAffected(res)
}

// UpdateRole sets the role for the given user id.
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.d.ExecContext(ctx, r.d.Rebind(`UPDATE users SET role = ? WHERE id = ?`), string(role), id)
	if err != nil {
		return errors.Wrapf(err, "update role of user %d", id)
	}
	return expectAffected(res)
}

// UpdateRoleByUsername sets the role for the given username.
// Intended for administrative flows and tests.
func (r *UserRepository) UpdateRoleByUsername(ctx context.Context, username string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", role)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.d.ExecContext(ctx, r.d.Rebind(`UPDATE users SET role = ? WHERE username = ?`), string(role), username)
	if err != nil {
		return errors.Wrapf(err, "update role of user %q", username)
	}
	return expectAffected(res)
}

// UpdatePassword replaces the stored credential. The value is stored verbatim.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, credential string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.d.ExecContext(ctx, r.d.Rebind(`UPDATE users SET password = ? WHERE id = ?`), credential, id)
	if err != nil {
		return errors.Wrapf(err, "update password of user %d", id)
	}
	return expectAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var u models.User
	var role sql.NullString
	if err := s.Scan(&u.ID, &u.Username, &u.Password, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	// A NULL role is treated as the default, as the column default would have produced.
	u.Role = models.DefaultRole
	if role.Valid && role.String != "" {
		u.Role = models.Role(role.String)
	}
	return &u, nil
}

// expectAffected turns a write that matched no row into sql.ErrNoRows.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
