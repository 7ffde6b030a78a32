package sqlite

import (
	"context"
	"fmt"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) CreateAnnouncement(ctx context.Context, a *storage.Announcement) error {
	if a == nil || a.ID == "" || a.MinistryID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (id, ministry_id, subject, body, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.MinistryID, a.Subject, a.Body, a.Source, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

func (s *Store) ListAnnouncements(ctx context.Context, ministryID string, limit int) ([]storage.Announcement, error) {
	query := `
		SELECT id, ministry_id, subject, body, source, created_at
		FROM announcements WHERE ministry_id = ? ORDER BY created_at DESC, id DESC
	`
	args := []any{ministryID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Announcement, 0)
	for rows.Next() {
		var a storage.Announcement
		if err := rows.Scan(&a.ID, &a.MinistryID, &a.Subject, &a.Body, &a.Source, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
