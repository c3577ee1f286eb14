package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type Organization struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Subdomain        string `json:"subdomain"`
	SubscriptionTier string `json:"subscription_tier"`
}

type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	OrganizationID int64  `json:"organization_id"`
	Role           string `json:"role"`
	FullName       string `json:"full_name"`
	IsActive       bool   `json:"is_active"`
}

func (db *DB) CreateOrganization(ctx context.Context, name string) (int64, error) {
	subdomain := slugify(name)
	var id int64
	err := db.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, subdomain)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (subdomain) DO UPDATE SET updated_at = now()
		RETURNING id`,
		name, subdomain).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create organization: %w", err)
	}
	return id, nil
}

func (db *DB) Organization(ctx context.Context, orgID int64) (*Organization, error) {
	var o Organization
	err := db.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(subdomain, ''), COALESCE(subscription_tier, 'free')
		FROM organizations WHERE id = $1`,
		orgID).Scan(&o.ID, &o.Name, &o.Subdomain, &o.SubscriptionTier)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

func (db *DB) CreateUser(ctx context.Context, email, passwordHash string, orgID int64, fullName, role string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, organization_id, full_name, role)
		VALUES (lower($1), $2, $3, $4, $5)
		RETURNING id`,
		email, passwordHash, orgID, fullName, role).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, organization_id, role, COALESCE(full_name, ''), is_active
		FROM users WHERE email = lower($1)`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.OrganizationID, &u.Role, &u.FullName, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by email: %w", err)
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, organization_id, role, COALESCE(full_name, ''), is_active
		FROM users WHERE id = $1`,
		userID).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.OrganizationID, &u.Role, &u.FullName, &u.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user by id: %w", err)
	}
	return &u, nil
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
