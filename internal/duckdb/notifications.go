package duckdb

import (
	"fmt"
	"time"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

// RecordDelivery appends one row to the notification delivery log.
func (s *Store) RecordDelivery(rec model.DeliveryRecord) error {
	ctx, cancel := s.queryCtx()
	defer cancel()

	if rec.DeliveredAt.IsZero() {
		rec.DeliveredAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (slug, tag, trigger_path, delivered_at) VALUES (?, ?, ?, ?)",
		rec.Slug, rec.Tag, rec.Trigger, rec.DeliveredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("duckdb: record delivery %s: %w", rec.Slug, err)
	}
	return nil
}

// RecentDeliveries returns the newest log rows first.
func (s *Store) RecentDeliveries(limit int) ([]model.DeliveryRecord, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, tag, trigger_path, delivered_at
		FROM notifications
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("duckdb: recent deliveries: %w", err)
	}
	defer rows.Close()

	var out []model.DeliveryRecord
	for rows.Next() {
		var rec model.DeliveryRecord
		if err := rows.Scan(&rec.Slug, &rec.Tag, &rec.Trigger, &rec.DeliveredAt); err != nil {
			return nil, fmt.Errorf("duckdb: recent deliveries: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteDeliveriesBefore prunes log rows older than cutoff.
func (s *Store) DeleteDeliveriesBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	res, err := s.db.ExecContext(ctx, "DELETE FROM notifications WHERE delivered_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("duckdb: prune deliveries: %w", err)
	}
	return res.RowsAffected()
}
