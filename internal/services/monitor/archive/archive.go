// Package archive persists accepted codes to Postgres for history. It is
// strictly observability: the live dedup ledger is memory-only and never
// reads this table back
package archive

import (
	"context"
	"time"

	perr "invitehound/internal/platform/errors"
	"invitehound/internal/platform/logger"
	"invitehound/internal/platform/store"
	"invitehound/internal/services/monitor/domain"
)

// PG records detections into the invite_codes table
type PG struct {
	st  *store.Store
	log logger.Logger
}

// NewPG returns a Postgres-backed recorder, or nil when the store is
// disabled so callers can wire the nil straight into the pipeline
func NewPG(st *store.Store) *PG {
	if !st.Enabled() {
		return nil
	}
	return &PG{st: st, log: *logger.Named("archive")}
}

// Migrate creates the invite_codes table if missing. Called once at boot;
// the schema is small enough that a migration tool would be overkill
func (a *PG) Migrate(ctx context.Context) error {
	_, err := a.st.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS invite_codes (
			code        text        PRIMARY KEY,
			source      text        NOT NULL,
			source_url  text        NOT NULL DEFAULT '',
			from_image  boolean     NOT NULL DEFAULT false,
			elapsed_s   integer     NOT NULL DEFAULT 0,
			detected_at timestamptz NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return perr.WithOp(perr.FromPostgres(err, "create invite_codes"), "archive.Migrate")
	}
	return nil
}

// Record inserts one accepted code. ON CONFLICT DO NOTHING keeps a process
// restart from erroring on codes already archived by the previous run
func (a *PG) Record(ctx context.Context, det domain.Detection) error {
	_, err := a.st.Pool.Exec(ctx, `
		INSERT INTO invite_codes (code, source, source_url, from_image, elapsed_s)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO NOTHING
	`, det.Code, string(det.Source), det.SourceURL, det.FromImage, det.ElapsedSeconds)
	if err != nil {
		return perr.WithOp(perr.FromPostgres(err, "insert invite_codes"), "archive.Record")
	}
	return nil
}

// Entry is one archived code row
type Entry struct {
	Code       string
	Source     domain.SourceKind
	SourceURL  string
	FromImage  bool
	ElapsedS   int
	DetectedAt time.Time
}

// Recent returns the newest archived codes, most recent first
func (a *PG) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.st.Pool.Query(ctx, `
		SELECT code, source, source_url, from_image, elapsed_s, detected_at
		FROM invite_codes
		ORDER BY detected_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, perr.WithOp(perr.FromPostgres(err, "select invite_codes"), "archive.Recent")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var source string
		if err := rows.Scan(&e.Code, &source, &e.SourceURL, &e.FromImage, &e.ElapsedS, &e.DetectedAt); err != nil {
			return nil, perr.WithOp(perr.FromPostgres(err, "scan invite_codes"), "archive.Recent")
		}
		e.Source = domain.SourceKind(source)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.WithOp(perr.FromPostgres(err, "iterate invite_codes"), "archive.Recent")
	}
	return out, nil
}

// compile-time check that PG satisfies the pipeline port
var _ domain.ArchivePort = (*PG)(nil)
