package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/samber/mo"

	"github.com/vergerhq/verger/schedule"
	"github.com/vergerhq/verger/storage"
)

func (s *Store) CreateRule(ctx context.Context, rec *storage.RuleRecord) error {
	if rec == nil || rec.ID == "" || rec.MinistryID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO rules (id, ministry_id, title, type, weekday, date, time, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.MinistryID,
		rec.Title,
		string(rec.Type),
		nullableInt(rec.Weekday),
		nullableString(rec.Date),
		rec.Time,
		rec.Active,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

func (s *Store) GetRule(ctx context.Context, ministryID, ruleID string) (*storage.RuleRecord, error) {
	query := `
		SELECT id, ministry_id, title, type, weekday, date, time, active, created_at, updated_at
		FROM rules WHERE ministry_id = ? AND id = ?
	`
	rec, err := scanRule(s.db.QueryRowContext(ctx, query, ministryID, ruleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return rec, nil
}

func (s *Store) ListRules(ctx context.Context, ministryID string, activeOnly bool) ([]storage.RuleRecord, error) {
	query := `
		SELECT id, ministry_id, title, type, weekday, date, time, active, created_at, updated_at
		FROM rules WHERE ministry_id = ?
	`
	args := []any{ministryID}
	if activeOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := make([]storage.RuleRecord, 0)
	for rows.Next() {
		rec, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRule(ctx context.Context, rec *storage.RuleRecord) error {
	if rec == nil || rec.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE rules SET title = ?, type = ?, weekday = ?, date = ?, time = ?, active = ?, updated_at = ?
		WHERE ministry_id = ? AND id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.Title,
		string(rec.Type),
		nullableInt(rec.Weekday),
		nullableString(rec.Date),
		rec.Time,
		rec.Active,
		rec.UpdatedAt,
		rec.MinistryID,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) DeactivateRule(ctx context.Context, ministryID, ruleID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rules SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE ministry_id = ? AND id = ?`,
		ministryID, ruleID)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	return requireRowAffected(res)
}

func (s *Store) ListMinistryIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ministry_id FROM rules ORDER BY ministry_id`)
	if err != nil {
		return nil, fmt.Errorf("list ministry ids: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ministry id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*storage.RuleRecord, error) {
	var (
		rec      storage.RuleRecord
		ruleType string
		weekday  sql.NullInt64
		date     sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.MinistryID,
		&rec.Title,
		&ruleType,
		&weekday,
		&date,
		&rec.Time,
		&rec.Active,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = schedule.RuleType(ruleType)
	if weekday.Valid {
		rec.Weekday = mo.Some(int(weekday.Int64))
	}
	if date.Valid {
		rec.Date = mo.Some(date.String)
	}
	return &rec, nil
}

func nullableInt(opt mo.Option[int]) sql.NullInt64 {
	if v, ok := opt.Get(); ok {
		return sql.NullInt64{Int64: int64(v), Valid: true}
	}
	return sql.NullInt64{}
}

func nullableString(opt mo.Option[string]) sql.NullString {
	if v, ok := opt.Get(); ok {
		return sql.NullString{String: v, Valid: true}
	}
	return sql.NullString{}
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
