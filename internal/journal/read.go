package journal

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Events returns journaled events matching f, ordered by run then seq.
//
// Returns an empty slice (not nil) when nothing matches.
func (j *Journal) Events(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, f.Channel)
	}
	if f.FromTick > 0 {
		where = append(where, "tick >= ?")
		args = append(args, int64(f.FromTick))
	}
	if f.ToTick > 0 {
		where = append(where, "tick <= ?")
		args = append(args, int64(f.ToTick))
	}

	query := `SELECT run_id, seq, tick, channel, payload, payload_hash, invoked, failed FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY run_id COLLATE BINARY ASC, seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			tick int64
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &tick, &e.Channel, &e.Payload, &e.PayloadHash, &e.Invoked, &e.Failed); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Tick = uint64(tick)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}

// Runs lists recorded runs, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, started_at FROM runs ORDER BY started_at ASC, id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r  Run
			ms int64
		)
		if err := rows.Scan(&r.ID, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(ms).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
