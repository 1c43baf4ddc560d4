package store

import (
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vonheldenundgestalten/tokenlogin/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, error) {
	var m model.Member
	var lockedUntil, activeFrom, activeUntil, lastLogin sql.NullTime

	err := scanner.Scan(
		&m.ID, &m.Username, &m.Email, &m.Kind, &m.Disabled, &m.LoginAllowed,
		&lockedUntil, &activeFrom, &activeUntil, &lastLogin,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lockedUntil.Valid {
		m.LockedUntil = &lockedUntil.Time
	}
	if activeFrom.Valid {
		m.ActiveFrom = &activeFrom.Time
	}
	if activeUntil.Valid {
		m.ActiveUntil = &activeUntil.Time
	}
	if lastLogin.Valid {
		m.LastLogin = &lastLogin.Time
	}
	return &m, nil
}

const memberCols = `id, username, email, kind, disabled, login_allowed, locked_until, active_from, active_until, last_login, created_at, updated_at`

// Create adds a member. The password is stored as a bcrypt hash; an empty
// password leaves the hash empty, which means token login only.
func (s *MemberStore) Create(username, email, password, kind string) (*model.Member, error) {
	var hash string
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(hashed)
	}
	if kind == "" {
		kind = model.KindFrontend
	}

	result, err := s.db.Exec(
		`INSERT INTO members (username, email, password_hash, kind) VALUES (?, ?, ?, ?)`,
		username, email, hash, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MemberStore) GetByID(id int64) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *MemberStore) GetByUsername(username string) (*model.Member, error) {
	row := s.db.QueryRow(`SELECT `+memberCols+` FROM members WHERE username = ?`, username)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member by username: %w", err)
	}
	return m, nil
}

// VerifyPassword checks a plaintext password against the stored hash.
// Members without a hash always fail.
func (s *MemberStore) VerifyPassword(username, password string) (bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM members WHERE username = ?`, username).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get password hash: %w", err)
	}
	if hash == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (s *MemberStore) SetDisabled(id int64, disabled bool) error {
	_, err := s.db.Exec(
		`UPDATE members SET disabled = ?, updated_at = datetime('now') WHERE id = ?`,
		disabled, id,
	)
	if err != nil {
		return fmt.Errorf("set member disabled: %w", err)
	}
	return nil
}

func (s *MemberStore) SetLockedUntil(id int64, until time.Time) error {
	_, err := s.db.Exec(
		`UPDATE members SET locked_until = ?, updated_at = datetime('now') WHERE id = ?`,
		until.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set member locked: %w", err)
	}
	return nil
}

func (s *MemberStore) UpdateLastLogin(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE members SET last_login = ?, updated_at = datetime('now') WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (s *MemberStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}
