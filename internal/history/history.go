package history

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/nerrad567/dingz-bridge/internal/coordinator"
	"github.com/nerrad567/dingz-bridge/internal/infrastructure/database"
	"github.com/nerrad567/dingz-bridge/internal/notify"
)

const (
	// DefaultLimit and MaxLimit bound list queries.
	DefaultLimit = 50
	MaxLimit     = 500

	// timeLayout is fixed-width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000Z"

	// recordTimeout bounds writes made from bus callbacks.
	recordTimeout = 5 * time.Second
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations of this package.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err) // the directory is embedded
	}
	return sub
}

// Logger is the logging interface used by the repository.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// RefreshEntry is one logged refresh.
type RefreshEntry struct {
	ID       int64         `json:"id"`
	Device   string        `json:"device"`
	Kind     string        `json:"kind"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// NotificationEntry is one logged notification.
type NotificationEntry struct {
	ID       int64           `json:"id"`
	Device   string          `json:"device"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	Received time.Time       `json:"received"`
}

// Repository reads and writes the history tables.
//
// Thread Safety:
//   - Safe for concurrent use; the database serialises writes.
type Repository struct {
	db     *database.DB
	now    func() time.Time
	logger Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for failed notification writes.
func WithLogger(l Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// New applies the history migrations to db and returns a repository on it.
//
// Parameters:
//   - ctx: Context for the migration
//   - db: Open database
//
// Returns:
//   - *Repository: Ready for use
//   - error: If the migration fails
func New(ctx context.Context, db *database.DB, opts ...Option) (*Repository, error) {
	if err := db.Migrate(ctx, Migrations()); err != nil {
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	r := &Repository{db: db, now: time.Now, logger: noopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RecordRefresh logs one coordinator refresh.
func (r *Repository) RecordRefresh(ctx context.Context, res coordinator.RefreshResult) error {
	if res.Device == "" {
		return ErrDeviceRequired
	}
	var errText any
	if res.Err != nil {
		errText = res.Err.Error()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_log (device, kind, started_at, duration_ms, error) VALUES (?, ?, ?, ?, ?)",
		res.Device, res.Kind, formatTime(res.Started), res.Duration.Milliseconds(), errText,
	)
	if err != nil {
		return fmt.Errorf("inserting refresh: %w", err)
	}
	return nil
}

// RecordNotification logs n for device with its JSON encoding.
func (r *Repository) RecordNotification(ctx context.Context, device string, n notify.Notification) error {
	if device == "" {
		return ErrDeviceRequired
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshalling %s notification: %w", n.Kind(), err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO notification_log (device, kind, payload, received_at) VALUES (?, ?, ?, ?)",
		device, n.Kind(), string(payload), formatTime(r.now()),
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// Attach subscribes the repository to a device's notifications and returns
// the unsubscribe func. Write failures are logged, not returned.
func (r *Repository) Attach(device string, subscribe func(func(notify.Notification)) notify.Unsubscribe) notify.Unsubscribe {
	return subscribe(func(n notify.Notification) {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.RecordNotification(ctx, device, n); err != nil {
			r.logger.Warn("recording notification failed", "device", device, "kind", n.Kind(), "error", err)
		}
	})
}

// ListRefreshes returns the newest refreshes of device, newest first.
// limit <= 0 means DefaultLimit; it is capped at MaxLimit.
func (r *Repository) ListRefreshes(ctx context.Context, device string, limit int) ([]RefreshEntry, error) {
	if device == "" {
		return nil, ErrDeviceRequired
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, kind, started_at, duration_ms, COALESCE(error, '')
		 FROM refresh_log WHERE device = ? ORDER BY id DESC LIMIT ?`,
		device, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying refreshes: %w", err)
	}
	defer rows.Close()

	entries := []RefreshEntry{}
	for rows.Next() {
		var e RefreshEntry
		var started string
		var ms int64
		if err := rows.Scan(&e.ID, &e.Device, &e.Kind, &started, &ms, &e.Error); err != nil {
			return nil, fmt.Errorf("scanning refresh: %w", err)
		}
		if e.Started, err = parseTime(started); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating refreshes: %w", err)
	}
	return entries, nil
}

// ListNotifications returns the newest notifications of device, newest
// first. limit behaves as in ListRefreshes.
func (r *Repository) ListNotifications(ctx context.Context, device string, limit int) ([]NotificationEntry, error) {
	if device == "" {
		return nil, ErrDeviceRequired
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device, kind, payload, received_at
		 FROM notification_log WHERE device = ? ORDER BY id DESC LIMIT ?`,
		device, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	entries := []NotificationEntry{}
	for rows.Next() {
		var e NotificationEntry
		var payload, received string
		if err := rows.Scan(&e.ID, &e.Device, &e.Kind, &payload, &received); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		if e.Received, err = parseTime(received); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return entries, nil
}

// Prune deletes rows older than olderThan from both tables and returns
// how many were removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := formatTime(r.now().Add(-olderThan))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	var total int64
	for _, stmt := range []string{
		"DELETE FROM refresh_log WHERE started_at < ?",
		"DELETE FROM notification_log WHERE received_at < ?",
	} {
		res, err := tx.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return 0, fmt.Errorf("pruning history: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("checking rows affected: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing prune: %w", err)
	}
	return total, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
