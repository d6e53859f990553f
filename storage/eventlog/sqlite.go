// Package eventlog archives committed ledger logs in SQLite so they can be
// queried after the process restarts.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"payledger/core/events"
	"payledger/core/types"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Record is one archived log entry.
type Record struct {
	Seq        int64       `json:"seq"`
	ID         string      `json:"id"`
	OccurredAt time.Time   `json:"occurredAt"`
	Event      types.Event `json:"event"`
}

// Filter narrows a List query. Zero values match everything.
type Filter struct {
	Types []string
	SN    string
	// AfterSeq returns entries strictly after the given sequence number.
	AfterSeq int64
	Limit    int
}

// Store persists ledger logs and satisfies events.Emitter.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

var _ events.Emitter = (*Store)(nil)

// Open opens (creating if needed) the archive at path. Use ":memory:" or a
// file: URI with mode=memory for ephemeral archives.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("eventlog: path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps shared in-memory databases alive and
	// serialises writers.
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{db: db, logger: logger, nowFn: func() time.Time { return time.Now().UTC() }}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            type TEXT NOT NULL,
            sn TEXT,
            attributes BLOB NOT NULL,
            occurred_at TIMESTAMP NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS ledger_events_type ON ledger_events(type);`,
		`CREATE INDEX IF NOT EXISTS ledger_events_sn ON ledger_events(sn);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Emit archives evt. Failures are logged; the ledger state has already been
// committed when logs are published.
func (s *Store) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	if err := s.Append(context.Background(), evt); err != nil {
		s.logger.Error("archive ledger event failed", slog.String("type", evt.EventType()), slog.Any("error", err))
	}
}

// Append archives evt and returns the first error encountered.
func (s *Store) Append(ctx context.Context, evt events.Event) error {
	payload := evt.Event()
	if payload == nil {
		return nil
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		return fmt.Errorf("eventlog: encode attributes: %w", err)
	}
	var sn any
	if v := payload.Attr("sn"); v != "" {
		sn = v
	}
	const stmt = `INSERT INTO ledger_events(id, type, sn, attributes, occurred_at) VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, stmt, uuid.NewString(), payload.Type, sn, attrs, s.nowFn())
	return err
}

// List returns archived entries matching filter in commit order.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		clauses = []string{"seq > ?"}
		args    = []any{filter.AfterSeq}
	)
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, typ := range filter.Types {
			placeholders[i] = "?"
			args = append(args, typ)
		}
		clauses = append(clauses, "type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if sn := strings.TrimSpace(filter.SN); sn != "" {
		clauses = append(clauses, "sn = ?")
		args = append(args, sn)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	args = append(args, limit)

	query := `SELECT seq, id, type, attributes, occurred_at FROM ledger_events WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY seq ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			attrs []byte
		)
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.Event.Type, &attrs, &rec.OccurredAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(attrs, &rec.Event.Attributes); err != nil {
			return nil, fmt.Errorf("eventlog: decode attributes: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
