package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) PutAssignment(ctx context.Context, a *storage.Assignment) error {
	if a == nil || a.OccurrenceID == "" || a.Role == "" || a.MemberID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO assignments (ministry_id, occurrence_id, role, member_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ministry_id, occurrence_id, role) DO UPDATE SET member_id = excluded.member_id
	`
	if _, err := s.db.ExecContext(ctx, query,
		a.MinistryID, a.OccurrenceID, a.Role, a.MemberID, a.CreatedAt); err != nil {
		return fmt.Errorf("put assignment: %w", err)
	}
	return nil
}

func (s *Store) GetAssignment(ctx context.Context, ministryID, occurrenceID, role string) (*storage.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ministry_id, occurrence_id, role, member_id, created_at
		FROM assignments WHERE ministry_id = ? AND occurrence_id = ? AND role = ?`,
		ministryID, occurrenceID, role)

	var a storage.Assignment
	err := row.Scan(&a.MinistryID, &a.OccurrenceID, &a.Role, &a.MemberID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return &a, nil
}

func (s *Store) ListAssignments(ctx context.Context, ministryID string, occurrenceIDs []string) ([]storage.Assignment, error) {
	if len(occurrenceIDs) == 0 {
		return []storage.Assignment{}, nil
	}

	placeholders := strings.Repeat("?,", len(occurrenceIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT ministry_id, occurrence_id, role, member_id, created_at
		FROM assignments WHERE ministry_id = ? AND occurrence_id IN (%s)
		ORDER BY occurrence_id, role`, placeholders)

	args := make([]any, 0, len(occurrenceIDs)+1)
	args = append(args, ministryID)
	for _, id := range occurrenceIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Assignment, 0)
	for rows.Next() {
		var a storage.Assignment
		if err := rows.Scan(&a.MinistryID, &a.OccurrenceID, &a.Role, &a.MemberID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAssignment(ctx context.Context, ministryID, occurrenceID, role string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM assignments WHERE ministry_id = ? AND occurrence_id = ? AND role = ?`,
		ministryID, occurrenceID, role)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return requireRowAffected(res)
}
