package model

import "time"

// LoginToken is a single-use bearer credential mailed to a member
// out-of-band. It is valid while the row exists and ExpiresAt is in the
// future; consuming it deletes the row.
type LoginToken struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	MemberID  int64     `json:"member_id"`
	JumpTo    string    `json:"jump_to"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	MemberID  int64     `json:"member_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
