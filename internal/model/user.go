package model

import "time"

// User roles
const (
	RoleCitizen   = "citizen"
	RoleAuthority = "authority"
	RoleAdmin     = "admin"
)

type User struct {
	UserBucket    int        `db:"user_bucket"`
	UserID        string     `db:"user_id"`
	Username      string     `db:"username"`
	Email         string     `db:"email"`
	Name          string     `db:"name"`
	Role          string     `db:"role"`
	PasswordHash  string     `db:"password_hash"`
	PasswordSalt  string     `db:"password_salt"`
	PepperVersion int        `db:"pepper_version"`
	Reputation    Reputation `db:"-"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
	LastLogin     *time.Time `db:"last_login"`
}

// Session is the per-login state kept in Redis. A session outlives its
// usefulness the moment the user crosses the permanent-ban threshold; the
// auth middleware re-checks ban status on every request and invalidates it.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
