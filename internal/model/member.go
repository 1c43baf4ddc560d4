package model

import "time"

// Member kinds. Only front-end members may log in through the token
// endpoint; back-end members use the admin login.
const (
	KindFrontend = "frontend"
	KindBackend  = "backend"
)

type Member struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Kind         string     `json:"kind"`
	Disabled     bool       `json:"disabled"`
	LoginAllowed bool       `json:"login_allowed"`
	LockedUntil  *time.Time `json:"locked_until"`
	ActiveFrom   *time.Time `json:"active_from"`
	ActiveUntil  *time.Time `json:"active_until"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
