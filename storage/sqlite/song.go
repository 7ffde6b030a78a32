package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vergerhq/verger/storage"
)

func (s *Store) CreateSong(ctx context.Context, song *storage.Song) error {
	if song == nil || song.ID == "" || song.MinistryID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, ministry_id, title, artist, song_key, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.MinistryID, song.Title, song.Artist, song.SongKey, song.Reference, song.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("create song: %w", err)
	}
	return nil
}

func (s *Store) GetSong(ctx context.Context, ministryID, songID string) (*storage.Song, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ministry_id, title, artist, song_key, reference, created_at
		FROM songs WHERE ministry_id = ? AND id = ?`,
		ministryID, songID)

	var song storage.Song
	err := row.Scan(&song.ID, &song.MinistryID, &song.Title, &song.Artist, &song.SongKey, &song.Reference, &song.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get song: %w", err)
	}
	return &song, nil
}

func (s *Store) ListSongs(ctx context.Context, ministryID string) ([]storage.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ministry_id, title, artist, song_key, reference, created_at
		FROM songs WHERE ministry_id = ? ORDER BY title, id`,
		ministryID)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	out := make([]storage.Song, 0)
	for rows.Next() {
		var song storage.Song
		if err := rows.Scan(&song.ID, &song.MinistryID, &song.Title, &song.Artist, &song.SongKey, &song.Reference, &song.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		out = append(out, song)
	}
	return out, rows.Err()
}

func (s *Store) SetSetlist(ctx context.Context, ministryID, occurrenceID string, entries []storage.SetlistEntry) error {
	if occurrenceID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin setlist tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM setlist_entries WHERE ministry_id = ? AND occurrence_id = ?`,
		ministryID, occurrenceID); err != nil {
		return fmt.Errorf("clear setlist: %w", err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO setlist_entries (ministry_id, occurrence_id, song_id, position)
			VALUES (?, ?, ?, ?)`,
			ministryID, occurrenceID, e.SongID, e.Position); err != nil {
			return fmt.Errorf("insert setlist entry: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) ListSetlistEntries(ctx context.Context, ministryID string, occurrenceIDs []string) ([]storage.SetlistEntry, error) {
	if len(occurrenceIDs) == 0 {
		return []storage.SetlistEntry{}, nil
	}

	placeholders := strings.Repeat("?,", len(occurrenceIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT ministry_id, occurrence_id, song_id, position
		FROM setlist_entries WHERE ministry_id = ? AND occurrence_id IN (%s)
		ORDER BY occurrence_id, position`, placeholders)

	args := make([]any, 0, len(occurrenceIDs)+1)
	args = append(args, ministryID)
	for _, id := range occurrenceIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list setlist entries: %w", err)
	}
	defer rows.Close()

	out := make([]storage.SetlistEntry, 0)
	for rows.Next() {
		var e storage.SetlistEntry
		if err := rows.Scan(&e.MinistryID, &e.OccurrenceID, &e.SongID, &e.Position); err != nil {
			return nil, fmt.Errorf("scan setlist entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
