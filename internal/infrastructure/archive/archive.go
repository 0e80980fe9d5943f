// Package archive keeps one row per committed main cycle in an embedded
// SQLite database: the scope, the three reconciled totals, the server
// verdict and the status line shown.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/focosview/focosview/internal/dashboard/bundle"
	"github.com/focosview/focosview/internal/dashboard/validator"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/internal/platform/clock"
	"github.com/focosview/focosview/pkg/errors"
	"github.com/focosview/focosview/pkg/types/focos"
)

const schema = `
CREATE TABLE IF NOT EXISTS consistency_checks (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	source            TEXT    NOT NULL,
	generation        INTEGER NOT NULL,
	recorded_at       INTEGER NOT NULL,
	range_from        TEXT    NOT NULL,
	range_to          TEXT    NOT NULL,
	filters           TEXT    NOT NULL,
	total             INTEGER NOT NULL,
	timeseries_sum    INTEGER NOT NULL,
	map_uf_sum        INTEGER NOT NULL,
	server_consistent INTEGER,
	check_failed      TEXT    NOT NULL,
	message           TEXT    NOT NULL,
	status_line       TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consistency_checks_recorded_at ON consistency_checks(recorded_at);
`

// Metrics counts archive writes.
type Metrics interface {
	ArchiveWrite(err error)
}

type nopMetrics struct{}

func (nopMetrics) ArchiveWrite(error) {}

// Config opens an Archive.
type Config struct {
	Path    string
	Source  string
	Clock   clock.Clock
	Logger  logging.Logger
	Metrics Metrics
}

// Entry is one archived check.
type Entry struct {
	ID               int64           `json:"id"`
	Source           string          `json:"source"`
	Generation       uint64          `json:"generation"`
	RecordedAt       time.Time       `json:"recorded_at"`
	Range            focos.DateRange `json:"range"`
	Filters          focos.Filters   `json:"filters"`
	Total            int64           `json:"total"`
	TimeseriesSum    int64           `json:"timeseries_sum"`
	MapUFSum         int64           `json:"map_uf_sum"`
	ServerConsistent *bool           `json:"server_consistent,omitempty"`
	Check            validator.Check `json:"check,omitempty"`
	Message          string          `json:"message,omitempty"`
	StatusLine       string          `json:"status_line"`
}

// Consistent reports whether no check failed.
func (e Entry) Consistent() bool { return e.Check == validator.CheckNone }

// ListOptions filters List.
type ListOptions struct {
	Limit            int
	OnlyInconsistent bool
	Since            time.Time
}

// Archive is the SQLite-backed check history.
type Archive struct {
	db  *sql.DB
	cfg Config
}

// Open opens (or creates) the database at cfg.Path and applies the schema.
func Open(ctx context.Context, cfg Config) (*Archive, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.ErrInvalidConfig.WithDetail("archive path is empty")
	}
	if cfg.Source == "" {
		cfg.Source = "focosview"
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveError, "open archive")
	}
	// SQLite takes one writer; keep a single pinned connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;", "PRAGMA synchronous=NORMAL;"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			cfg.Logger.Debug("sqlite pragma skipped", logging.String("pragma", pragma), logging.Err(err))
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeArchiveError, "apply archive schema")
	}
	cfg.Logger.Info("archive opened", logging.String("path", cfg.Path))
	return &Archive{db: db, cfg: cfg}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Ping checks the database connection.
func (a *Archive) Ping(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveError, "archive unavailable")
	}
	return nil
}

// Record stores the outcome of one committed main cycle.
func (a *Archive) Record(ctx context.Context, b *bundle.Aggregate, r validator.Result, statusLine string) (err error) {
	defer func() { a.cfg.Metrics.ArchiveWrite(err) }()
	if b == nil {
		return errors.InvalidParam("nil bundle")
	}
	filters, err := json.Marshal(b.State.Filters)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "encode filters")
	}
	var server sql.NullBool
	if b.Validation != nil {
		server = sql.NullBool{Bool: b.Validation.Consistent, Valid: true}
	}

	const q = `INSERT INTO consistency_checks
		(source, generation, recorded_at, range_from, range_to, filters, total, timeseries_sum,
		 map_uf_sum, server_consistent, check_failed, message, status_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = a.db.ExecContext(ctx, q,
		a.cfg.Source, int64(b.Generation), a.cfg.Clock.Now().UnixMilli(),
		b.State.Range.From.String(), b.State.Range.To.String(), string(filters),
		r.Total, r.TimeseriesSum, r.MapUFSum, server, string(r.Check), r.Message, statusLine)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeArchiveError, "insert consistency check")
	}
	return nil
}

// List returns the newest entries first.
func (a *Archive) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	var (
		where []string
		args  []any
	)
	if opts.OnlyInconsistent {
		where = append(where, "check_failed <> ''")
	}
	if !opts.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	q := `SELECT id, source, generation, recorded_at, range_from, range_to, filters, total,
		timeseries_sum, map_uf_sum, server_consistent, check_failed, message, status_line
		FROM consistency_checks`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY recorded_at DESC, id DESC LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveError, "list consistency checks")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeArchiveError, "list consistency checks")
	}
	return out, nil
}

// Count returns the number of archived checks.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM consistency_checks`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeArchiveError, "count consistency checks")
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                 Entry
		generation        int64
		recordedAt        int64
		from, to, filters string
		server            sql.NullBool
		check             string
	)
	if err := rows.Scan(&e.ID, &e.Source, &generation, &recordedAt, &from, &to, &filters,
		&e.Total, &e.TimeseriesSum, &e.MapUFSum, &server, &check, &e.Message, &e.StatusLine); err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrCodeArchiveError, "scan consistency check")
	}
	e.Generation = uint64(generation)
	e.RecordedAt = time.UnixMilli(recordedAt).UTC()
	e.Check = validator.Check(check)
	if server.Valid {
		v := server.Bool
		e.ServerConsistent = &v
	}
	var err error
	if e.Range.From, err = parseStoredDate(from); err != nil {
		return Entry{}, err
	}
	if e.Range.To, err = parseStoredDate(to); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(filters), &e.Filters); err != nil {
		return Entry{}, errors.Wrap(err, errors.ErrCodeSerialization, "decode filters")
	}
	return e, nil
}

func parseStoredDate(s string) (focos.Date, error) {
	if s == "" {
		return focos.Date{}, nil
	}
	d, err := focos.ParseDate(s)
	if err != nil {
		return focos.Date{}, errors.Wrap(err, errors.ErrCodeArchiveError, fmt.Sprintf("stored date %q", s))
	}
	return d, nil
}
