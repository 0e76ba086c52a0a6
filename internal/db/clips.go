package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrClipNotFound is returned when a job id exists in neither table.
var ErrClipNotFound = errors.New("clip not found")

// AnonymousTTL is how long an unpromoted anonymous clip row lives.
const AnonymousTTL = 24 * time.Hour

// ClipRow is the durable mirror of one job. Anonymous reports whether the
// row lives in anonymous_clips, in which case ExpiresAt is set.
type ClipRow struct {
	JobID           string
	Owner           string // user id, or session id when Anonymous
	SourceURL       string
	FinalPath       string
	SubtitlePath    string
	SerializedState []byte
	CreatedAt       time.Time
	Anonymous       bool
	ExpiresAt       *time.Time
}

// SaveClip upserts the durable mirror of a job. Ownership kind picks the
// table; a job id never exists in both.
func (q *Queries) SaveClip(ctx context.Context, row ClipRow) error {
	state := row.SerializedState
	if len(state) == 0 {
		state = []byte("{}")
	}

	if row.Anonymous {
		expires := time.Now().UTC().Add(AnonymousTTL)
		if row.ExpiresAt != nil {
			expires = *row.ExpiresAt
		}
		_, err := q.db.Exec(ctx, `
			INSERT INTO anonymous_clips (job_id, session_id, source_url, final_path, subtitle_path, serialized_state, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (job_id) DO UPDATE SET
				final_path = EXCLUDED.final_path,
				subtitle_path = EXCLUDED.subtitle_path,
				serialized_state = EXCLUDED.serialized_state`,
			row.JobID, row.Owner, row.SourceURL, row.FinalPath, row.SubtitlePath, state, expires)
		if err != nil {
			return fmt.Errorf("save anonymous clip: %w", err)
		}
		return nil
	}

	_, err := q.db.Exec(ctx, `
		INSERT INTO clips (job_id, owner, source_url, final_path, subtitle_path, serialized_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO UPDATE SET
			final_path = EXCLUDED.final_path,
			subtitle_path = EXCLUDED.subtitle_path,
			serialized_state = EXCLUDED.serialized_state`,
		row.JobID, row.Owner, row.SourceURL, row.FinalPath, row.SubtitlePath, state)
	if err != nil {
		return fmt.Errorf("save clip: %w", err)
	}
	return nil
}

// LoadClip fetches a job's durable mirror from whichever table holds it.
func (q *Queries) LoadClip(ctx context.Context, jobID string) (*ClipRow, error) {
	row := &ClipRow{}
	err := q.db.QueryRow(ctx, `
		SELECT job_id, owner, source_url, final_path, subtitle_path, serialized_state, created_at
		FROM clips WHERE job_id = $1`, jobID).
		Scan(&row.JobID, &row.Owner, &row.SourceURL, &row.FinalPath, &row.SubtitlePath, &row.SerializedState, &row.CreatedAt)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load clip: %w", err)
	}

	var expires time.Time
	err = q.db.QueryRow(ctx, `
		SELECT job_id, session_id, source_url, final_path, subtitle_path, serialized_state, created_at, expires_at
		FROM anonymous_clips WHERE job_id = $1`, jobID).
		Scan(&row.JobID, &row.Owner, &row.SourceURL, &row.FinalPath, &row.SubtitlePath, &row.SerializedState, &row.CreatedAt, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load anonymous clip: %w", err)
	}
	row.Anonymous = true
	row.ExpiresAt = &expires
	return row, nil
}

// PromoteSession moves every anonymous clip owned by sessionID into clips
// under userID. Idempotent: a session with nothing left to promote is a
// no-op. Returns the number of rows moved.
func (q *Queries) PromoteSession(ctx context.Context, sessionID, userID string) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		WITH moved AS (
			DELETE FROM anonymous_clips WHERE session_id = $1
			RETURNING job_id, source_url, final_path, subtitle_path, serialized_state, created_at
		)
		INSERT INTO clips (job_id, owner, source_url, final_path, subtitle_path, serialized_state, created_at)
		SELECT job_id, $2, source_url, final_path, subtitle_path, serialized_state, created_at FROM moved
		ON CONFLICT (job_id) DO NOTHING`,
		sessionID, userID)
	if err != nil {
		return 0, fmt.Errorf("promote session: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SweepExpired deletes anonymous rows whose expiry has passed. Idempotent
// and safe to run concurrently.
func (q *Queries) SweepExpired(ctx context.Context, now time.Time) ([]ClipRow, error) {
	rows, err := q.db.Query(ctx, `
		DELETE FROM anonymous_clips WHERE expires_at < $1
		RETURNING job_id, session_id, source_url, final_path, subtitle_path, created_at, expires_at`, now)
	if err != nil {
		return nil, fmt.Errorf("sweep expired: %w", err)
	}
	defer rows.Close()

	var swept []ClipRow
	for rows.Next() {
		var r ClipRow
		var expires time.Time
		if err := rows.Scan(&r.JobID, &r.Owner, &r.SourceURL, &r.FinalPath, &r.SubtitlePath, &r.CreatedAt, &expires); err != nil {
			return nil, fmt.Errorf("scan swept row: %w", err)
		}
		r.Anonymous = true
		r.ExpiresAt = &expires
		swept = append(swept, r)
	}
	return swept, rows.Err()
}

// ListClipsByOwner returns clips for an owner id, newest first, searching
// both tables.
func (q *Queries) ListClipsByOwner(ctx context.Context, owner string) ([]ClipRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT job_id, owner, source_url, final_path, subtitle_path, serialized_state, created_at, FALSE, NULL::timestamptz
		FROM clips WHERE owner = $1
		UNION ALL
		SELECT job_id, session_id, source_url, final_path, subtitle_path, serialized_state, created_at, TRUE, expires_at
		FROM anonymous_clips WHERE session_id = $1
		ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var out []ClipRow
	for rows.Next() {
		var r ClipRow
		if err := rows.Scan(&r.JobID, &r.Owner, &r.SourceURL, &r.FinalPath, &r.SubtitlePath, &r.SerializedState, &r.CreatedAt, &r.Anonymous, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan clip row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
