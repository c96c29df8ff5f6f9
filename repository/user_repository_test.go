package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"secureNotes/internal/db"
	"secureNotes/internal/testutil"
	"secureNotes/models"
)

func TestUserRepository_CRUDAndQueries(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "userrepo")
	repo := NewUserRepository(d)
	ctx := context.Background()

	// Create
	u, err := repo.Create(ctx, &models.User{Username: "alice", Password: "$2a$10$opaque"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 || u.Username != "alice" || u.Role != models.RoleUser {
		t.Fatalf("unexpected created user: %+v", u)
	}
	if u.Password != "$2a$10$opaque" {
		t.Fatalf("credential not stored verbatim: %q", u.Password)
	}

	// GetByID
	g, err := repo.GetByID(ctx, u.ID)
	if err != nil || g == nil || g.Username != "alice" {
		t.Fatalf("get by id: %v %+v", err, g)
	}

	// GetByUsername
	g2, err := repo.GetByUsername(ctx, "alice")
	if err != nil || g2 == nil || g2.ID != u.ID {
		t.Fatalf("get by username: %v %+v", err, g2)
	}

	// List
	list, err := repo.List(ctx, 10, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v len=%d", err, len(list))
	}

	// UpdateRoleByUsername
	if err := repo.UpdateRoleByUsername(ctx, "alice", models.RoleAdmin); err != nil {
		t.Fatalf("update role: %v", err)
	}
	g3, _ := repo.GetByUsername(ctx, "alice")
	if g3.Role != models.RoleAdmin {
		t.Fatalf("role not updated: %+v", g3)
	}

	// UpdatePassword
	if err := repo.UpdatePassword(ctx, u.ID, "$2a$10$rotated"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	g4, _ := repo.GetByID(ctx, u.ID)
	if g4.Password != "$2a$10$rotated" {
		t.Fatalf("password not updated: %+v", g4)
	}

	// Delete
	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := repo.GetByID(ctx, u.ID)
	if err != nil || gone != nil {
		t.Fatalf("expected user deleted, got: %+v err=%v", gone, err)
	}
	if err := repo.Delete(ctx, u.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete: want sql.ErrNoRows, got %v", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	repo := NewUserRepository(d)
	ctx := context.Background()

	if _, err := repo.Create(ctx, &models.User{Username: "bob", Password: "h1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := repo.Create(ctx, &models.User{Username: "bob", Password: "h2"})
	if err == nil {
		t.Fatalf("expected duplicate username to fail")
	}
	if !db.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}

func TestUserRepository_ExplicitRole(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	repo := NewUserRepository(d)
	ctx := context.Background()

	m, err := repo.Create(ctx, &models.User{Username: "mod", Password: "h", Role: models.RoleModerator})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if m.Role != models.RoleModerator || !m.Role.IsModerator() || m.Role.IsAdmin() {
		t.Fatalf("unexpected role: %+v", m)
	}

	if _, err := repo.Create(ctx, &models.User{Username: "root", Password: "h", Role: "superuser"}); err == nil {
		t.Fatalf("expected unknown role to be rejected")
	}
	if err := repo.UpdateRole(ctx, m.ID, "owner"); err == nil {
		t.Fatalf("expected unknown role update to be rejected")
	}
	if err := repo.UpdateRole(ctx, m.ID+100, models.RoleAdmin); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("update missing user: want sql.ErrNoRows, got %v", err)
	}
}

func TestUserRepository_NullRoleReadsAsDefault(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	repo := NewUserRepository(d)
	ctx := context.Background()

	if _, err := d.ExecContext(ctx, `INSERT INTO users (username, password, role) VALUES ('legacy', 'h', NULL)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	u, err := repo.GetByUsername(ctx, "legacy")
	if err != nil || u == nil {
		t.Fatalf("get: %v %+v", err, u)
	}
	if u.Role != models.DefaultRole {
		t.Fatalf("role = %q, want %q", u.Role, models.DefaultRole)
	}
}

func TestUserRepository_ListPaging(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	repo := NewUserRepository(d)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := repo.Create(ctx, &models.User{Username: name, Password: "h"}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	page, err := repo.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].Username != "b" || page[1].Username != "c" {
		t.Fatalf("unexpected page: %+v", page)
	}
	missing, err := repo.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil,nil for missing user, got %+v %v", missing, err)
	}
}
