package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Response is one cached HTTP body, keyed by cache name and request URL.
type Response struct {
	Cache       string
	URL         string
	Hash        string
	Body        []byte
	ContentType string
	FetchedAt   time.Time
}

// GetResponse returns the cached response for (cache, url).
func (s *Store) GetResponse(cache, url string) (Response, bool, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	r := Response{Cache: cache, URL: url}
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, body, content_type, fetched_at
		FROM responses
		WHERE cache = ? AND url = ?`, cache, url,
	).Scan(&r.Hash, &r.Body, &r.ContentType, &r.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, fmt.Errorf("duckdb: get response %s %s: %w", cache, url, err)
	}
	return r, true, nil
}

// PutResponse inserts or replaces a cached response.
func (s *Store) PutResponse(r Response) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	if r.FetchedAt.IsZero() {
		r.FetchedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (cache, url, hash, body, content_type, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Cache, r.URL, r.Hash, r.Body, r.ContentType, r.FetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("duckdb: put response %s %s: %w", r.Cache, r.URL, err)
	}
	return nil
}

// DeleteResponse removes one cached response.
func (s *Store) DeleteResponse(cache, url string) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE cache = ? AND url = ?", cache, url); err != nil {
		return fmt.Errorf("duckdb: delete response %s %s: %w", cache, url, err)
	}
	return nil
}

// CountResponses returns how many entries cache holds.
func (s *Store) CountResponses(cache string) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM responses WHERE cache = ?", cache).Scan(&n); err != nil {
		return 0, fmt.Errorf("duckdb: count responses %s: %w", cache, err)
	}
	return n, nil
}

// ExpireResponses deletes entries of cache fetched before cutoff, then
// trims the cache to its maxEntries most recent entries. A non-positive
// maxEntries disables the trim. It returns the hashes of the removed rows.
func (s *Store) ExpireResponses(cache string, cutoff time.Time, maxEntries int) ([]string, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("duckdb: expire %s: begin: %w", cache, err)
	}
	defer tx.Rollback()

	where := "cache = ? AND fetched_at < ?"
	args := []any{cache, cutoff.UTC()}
	if maxEntries > 0 {
		where = `cache = ? AND (fetched_at < ? OR url NOT IN (
			SELECT url FROM responses WHERE cache = ? ORDER BY fetched_at DESC, url LIMIT ?))`
		args = append(args, cache, maxEntries)
	}

	rows, err := tx.QueryContext(ctx, "SELECT hash FROM responses WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb: expire %s: select: %w", cache, err)
	}
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return nil, fmt.Errorf("duckdb: expire %s: scan: %w", cache, err)
		}
		hashes = append(hashes, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb: expire %s: rows: %w", cache, err)
	}
	if len(hashes) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM responses WHERE "+where, args...); err != nil {
		return nil, fmt.Errorf("duckdb: expire %s: delete: %w", cache, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("duckdb: expire %s: commit: %w", cache, err)
	}
	return hashes, nil
}
