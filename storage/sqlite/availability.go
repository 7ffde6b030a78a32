package sqlite

import (
	"context"
	"fmt"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) SetAvailability(ctx context.Context, av *storage.Availability) error {
	if av == nil || av.MemberID == "" || av.Date == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO availability (ministry_id, member_id, date, available, note)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ministry_id, member_id, date) DO UPDATE SET
			available = excluded.available, note = excluded.note
	`
	if _, err := s.db.ExecContext(ctx, query,
		av.MinistryID, av.MemberID, av.Date, av.Available, av.Note); err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	return nil
}

func (s *Store) ListAvailability(ctx context.Context, ministryID, date string) ([]storage.Availability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ministry_id, member_id, date, available, note
		FROM availability WHERE ministry_id = ? AND date = ? ORDER BY member_id`,
		ministryID, date)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Availability, 0)
	for rows.Next() {
		var av storage.Availability
		if err := rows.Scan(&av.MinistryID, &av.MemberID, &av.Date, &av.Available, &av.Note); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		out = append(out, av)
	}
	return out, rows.Err()
}
