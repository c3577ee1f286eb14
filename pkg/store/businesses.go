package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

type Business struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	IsActive       bool   `json:"is_active"`
	Greeting       string `json:"greeting"`
	AssistantName  string `json:"assistant_name"`
	SystemPrompt   string `json:"system_prompt"`
	MenuReference  string `json:"menu_reference"`
	PhoneNumber    string `json:"phone_number"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Voice          string `json:"voice"`
}

const businessColumns = `id, organization_id, name, type, is_active,
	COALESCE(greeting, ''), COALESCE(assistant_name, ''), COALESCE(system_prompt, ''),
	COALESCE(menu_reference, ''), COALESCE(phone_number, ''), COALESCE(email, ''),
	COALESCE(address, ''), COALESCE(voice, '')`

// OrganizationIDByPhone maps an inbound called number to the owning
// organization through its business phone numbers.
func (db *DB) OrganizationIDByPhone(ctx context.Context, phoneNumber string) (int64, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return 0, ErrNotFound
	}
	var orgID int64
	err := db.pool.QueryRow(ctx, `
		SELECT organization_id FROM businesses
		WHERE phone_number = $1
		ORDER BY is_active DESC, id ASC
		LIMIT 1`,
		phoneNumber).Scan(&orgID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("organization by phone: %w", err)
	}
	return orgID, nil
}

// ActiveBusiness returns the organization's single active business config.
func (db *DB) ActiveBusiness(ctx context.Context, orgID int64) (*Business, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE organization_id = $1 AND is_active
		LIMIT 1`,
		orgID)
	var b Business
	if err := scanBusiness(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("active business: %w", err)
	}
	return &b, nil
}

func (db *DB) Businesses(ctx context.Context, orgID int64) ([]Business, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE organization_id = $1
		ORDER BY id`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	out := make([]Business, 0, 4)
	for rows.Next() {
		var b Business
		if err := scanBusiness(rows, &b); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (db *DB) Business(ctx context.Context, orgID, businessID int64) (*Business, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE id = $1 AND organization_id = $2`,
		businessID, orgID)
	var b Business
	if err := scanBusiness(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get business: %w", err)
	}
	return &b, nil
}

func (db *DB) UpdateBusiness(ctx context.Context, orgID int64, b Business) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE businesses
		SET name = $3, type = $4, greeting = $5, assistant_name = $6, system_prompt = $7,
		    menu_reference = $8, phone_number = $9, email = $10, address = $11, voice = $12,
		    updated_at = now()
		WHERE id = $1 AND organization_id = $2`,
		b.ID, orgID, b.Name, b.Type, b.Greeting, b.AssistantName, b.SystemPrompt,
		b.MenuReference, b.PhoneNumber, b.Email, b.Address, b.Voice)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActiveBusiness activates one business and deactivates the
// organization's others.
func (db *DB) SetActiveBusiness(ctx context.Context, orgID, businessID int64) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("set active business: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE businesses SET is_active = false WHERE organization_id = $1`, orgID); err != nil {
		return fmt.Errorf("deactivate businesses: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		UPDATE businesses SET is_active = true, updated_at = now()
		WHERE id = $1 AND organization_id = $2`,
		businessID, orgID)
	if err != nil {
		return fmt.Errorf("activate business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// CreateBusiness inserts a business; the first one for an organization is
// activated immediately.
func (db *DB) CreateBusiness(ctx context.Context, b Business) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx, `
		INSERT INTO businesses (organization_id, name, type, is_active, greeting, assistant_name,
			system_prompt, menu_reference, phone_number, email, address, voice)
		VALUES ($1, $2, $3,
			NOT EXISTS (SELECT 1 FROM businesses WHERE organization_id = $1),
			$4, $5, $6, $7, $8, $9, $10, COALESCE(NULLIF($11, ''), 'Polly.Matthew-Neural'))
		RETURNING id`,
		b.OrganizationID, b.Name, b.Type, b.Greeting, b.AssistantName,
		b.SystemPrompt, b.MenuReference, b.PhoneNumber, b.Email, b.Address, b.Voice).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create business: %w", err)
	}
	return id, nil
}

func scanBusiness(row pgx.Row, b *Business) error {
	return row.Scan(&b.ID, &b.OrganizationID, &b.Name, &b.Type, &b.IsActive,
		&b.Greeting, &b.AssistantName, &b.SystemPrompt, &b.MenuReference,
		&b.PhoneNumber, &b.Email, &b.Address, &b.Voice)
}
