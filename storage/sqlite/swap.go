package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) CreateSwapRequest(ctx context.Context, req *storage.SwapRequest) error {
	if req == nil || req.ID == "" || req.MinistryID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO swap_requests (id, ministry_id, occurrence_id, role, from_member_id, to_member_id, status, note, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.MinistryID, req.OccurrenceID, req.Role,
		req.FromMemberID, req.ToMemberID, string(req.Status), req.Note,
		req.CreatedAt, req.ResolvedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create swap request: %w", err)
	}
	return nil
}

func (s *Store) GetSwapRequest(ctx context.Context, ministryID, requestID string) (*storage.SwapRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ministry_id, occurrence_id, role, from_member_id, to_member_id, status, note, created_at, resolved_at
		FROM swap_requests WHERE ministry_id = ? AND id = ?`,
		ministryID, requestID)

	req, err := scanSwap(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get swap request: %w", err)
	}
	return req, nil
}

func (s *Store) ListSwapRequests(ctx context.Context, ministryID string, status storage.SwapStatus) ([]storage.SwapRequest, error) {
	query := `
		SELECT id, ministry_id, occurrence_id, role, from_member_id, to_member_id, status, note, created_at, resolved_at
		FROM swap_requests WHERE ministry_id = ?
	`
	args := []any{ministryID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	out := make([]storage.SwapRequest, 0)
	for rows.Next() {
		req, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSwapRequest(ctx context.Context, req *storage.SwapRequest) error {
	if req == nil || req.ID == "" {
		return storage.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE swap_requests SET status = ?, note = ?, resolved_at = ?
		WHERE ministry_id = ? AND id = ?`,
		string(req.Status), req.Note, req.ResolvedAt, req.MinistryID, req.ID)
	if err != nil {
		return fmt.Errorf("update swap request: %w", err)
	}
	return requireRowAffected(res)
}

func scanSwap(row rowScanner) (*storage.SwapRequest, error) {
	var (
		req        storage.SwapRequest
		status     string
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.MinistryID, &req.OccurrenceID, &req.Role,
		&req.FromMemberID, &req.ToMemberID, &status, &req.Note,
		&req.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	req.Status = storage.SwapStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return &req, nil
}
