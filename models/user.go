package models

// User is a row of the `users` table.
//
// Password holds an opaque credential produced by the authentication module
// (for example a bcrypt hash). The store never hashes or compares it.
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
	Role     Role   `db:"role" json:"role"`
}
