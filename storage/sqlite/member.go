package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) CreateMember(ctx context.Context, m *storage.Member) error {
	if m == nil || m.ID == "" || m.MinistryID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, ministry_id, name, email, roles, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.MinistryID, m.Name, m.Email, joinRoles(m.Roles), m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (s *Store) GetMember(ctx context.Context, ministryID, memberID string) (*storage.Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ministry_id, name, email, roles, created_at FROM members WHERE ministry_id = ? AND id = ?`,
		ministryID, memberID)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, ministryID string) ([]storage.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ministry_id, name, email, roles, created_at FROM members WHERE ministry_id = ? ORDER BY name, id`,
		ministryID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMember(row rowScanner) (*storage.Member, error) {
	var (
		m     storage.Member
		roles string
	)
	if err := row.Scan(&m.ID, &m.MinistryID, &m.Name, &m.Email, &roles, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Roles = splitRoles(roles)
	return &m, nil
}
