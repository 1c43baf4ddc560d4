package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
)

type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

func scanToken(scanner interface{ Scan(...any) error }) (*model.LoginToken, error) {
	var t model.LoginToken
	err := scanner.Scan(&t.ID, &t.Token, &t.MemberID, &t.JumpTo, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const tokenCols = `id, token, member_id, jump_to, expires_at, created_at`

// Create mints a login token for the member with a crypto-random value.
// jumpTo is the post-login redirect target recorded at issuance time.
func (s *TokenStore) Create(memberID int64, jumpTo string, ttl time.Duration) (*model.LoginToken, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().UTC().Add(ttl)

	result, err := s.db.Exec(
		`INSERT INTO login_tokens (token, member_id, jump_to, expires_at) VALUES (?, ?, ?, ?)`,
		token, memberID, jumpTo, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert login token: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+tokenCols+` FROM login_tokens WHERE id = ?`, id)
	return scanToken(row)
}

// GetValid returns the unexpired token matching the given value, or nil
// if no such row exists. Absent and expired are indistinguishable here.
func (s *TokenStore) GetValid(token string) (*model.LoginToken, error) {
	row := s.db.QueryRow(
		`SELECT `+tokenCols+` FROM login_tokens WHERE token = ? AND expires_at > datetime('now')`,
		token,
	)
	t, err := scanToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login token: %w", err)
	}
	return t, nil
}

// Consume deletes the token row by id and reports whether this call was
// the one that removed it. Concurrent consumers of the same token see the
// single DELETE's affected-row count, so at most one gets true.
func (s *TokenStore) Consume(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM login_tokens WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("consume login token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *TokenStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM login_tokens WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired login tokens: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
