package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the statements used by the stores.
type Queries struct {
	db DBTX
}

// New binds queries to a pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ---------------------------------------------------------------- kv_store

const kvGet = `SELECT key, value, expires_at, created_at, updated_at FROM kv_store WHERE key = ?`

func (q *Queries) KVGet(ctx context.Context, key string) (KvStore, error) {
	var row KvStore
	err := q.db.QueryRowContext(ctx, kvGet, key).Scan(&row.Key, &row.Value, &row.ExpiresAt, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

// KVSetParams are the arguments to KVSet.
type KVSetParams struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

const kvSet = `
INSERT INTO kv_store (key, value, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    value      = excluded.value,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at`

func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, kvSet, arg.Key, arg.Value, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const kvDelete = `DELETE FROM kv_store WHERE key = ?`

func (q *Queries) KVDelete(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, kvDelete, key)
	return err
}

const kvListKeys = `SELECT key FROM kv_store WHERE expires_at IS NULL OR expires_at >= ? ORDER BY key`

func (q *Queries) KVListKeys(ctx context.Context, now sql.NullInt64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, kvListKeys, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

const kvSweepExpired = `DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at < ?`

func (q *Queries) KVSweepExpired(ctx context.Context, now sql.NullInt64) (int64, error) {
	res, err := q.db.ExecContext(ctx, kvSweepExpired, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --------------------------------------------------------------- resources

const getResource = `SELECT id, kind, token, value, created_at, updated_at FROM resources WHERE id = ?`

func (q *Queries) GetResource(ctx context.Context, id string) (Resource, error) {
	var row Resource
	err := q.db.QueryRowContext(ctx, getResource, id).
		Scan(&row.ID, &row.Kind, &row.Token, &row.Value, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

// InsertResourceParams are the arguments to InsertResource.
type InsertResourceParams struct {
	ID        string
	Kind      string
	Token     string
	Value     []byte
	CreatedAt int64
}

const insertResource = `
INSERT INTO resources (id, kind, token, value, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

// InsertResource creates a resource and returns the number of rows inserted,
// which is zero when the id already exists.
func (q *Queries) InsertResource(ctx context.Context, arg InsertResourceParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertResource, arg.ID, arg.Kind, arg.Token, arg.Value, arg.CreatedAt, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateResourceParams are the arguments to UpdateResource.
type UpdateResourceParams struct {
	ID            string
	ExpectedToken string
	Token         string
	Value         []byte
	UpdatedAt     int64
}

const updateResource = `
UPDATE resources
SET token = ?, value = ?, updated_at = ?
WHERE id = ? AND token = ?`

// UpdateResource replaces the value when the stored token matches and returns
// the number of rows updated.
func (q *Queries) UpdateResource(ctx context.Context, arg UpdateResourceParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateResource, arg.Token, arg.Value, arg.UpdatedAt, arg.ID, arg.ExpectedToken)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listResourceIDs = `SELECT id FROM resources WHERE kind = ? ORDER BY id`

func (q *Queries) ListResourceIDs(ctx context.Context, kind string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listResourceIDs, kind)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const deleteResource = `DELETE FROM resources WHERE id = ?`

func (q *Queries) DeleteResource(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteResource, id)
	return err
}

// ------------------------------------------------------------------- tasks

const taskColumns = `id, title, bucket, percent_complete, due_at, created_at, updated_at`

func scanTask(scan func(dest ...any) error) (Task, error) {
	var row Task
	err := scan(&row.ID, &row.Title, &row.Bucket, &row.PercentComplete, &row.DueAt, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const listTasks = `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at, id`

func (q *Queries) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasks)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Task
	for rows.Next() {
		row, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const getTask = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

func (q *Queries) GetTask(ctx context.Context, id string) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, getTask, id).Scan)
}

// SaveTaskParams are the arguments to SaveTask.
type SaveTaskParams = Task

const saveTask = `
INSERT INTO tasks (` + taskColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    title            = excluded.title,
    bucket           = excluded.bucket,
    percent_complete = excluded.percent_complete,
    due_at           = excluded.due_at,
    updated_at       = excluded.updated_at`

func (q *Queries) SaveTask(ctx context.Context, arg SaveTaskParams) error {
	_, err := q.db.ExecContext(ctx, saveTask,
		arg.ID, arg.Title, arg.Bucket, arg.PercentComplete, arg.DueAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const deleteTask = `DELETE FROM tasks WHERE id = ?`

func (q *Queries) DeleteTask(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTask, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ----------------------------------------------------------- notifications

// InsertNotificationParams are the arguments to InsertNotification.
type InsertNotificationParams struct {
	Level     string
	Source    string
	Message   string
	CreatedAt int64
}

const insertNotification = `INSERT INTO notifications (level, source, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`

func (q *Queries) InsertNotification(ctx context.Context, arg InsertNotificationParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertNotification, arg.Level, arg.Source, arg.Message, arg.CreatedAt).Scan(&id)
	return id, err
}

// LIMIT -1 is unbounded in SQLite.
const listNotifications = `SELECT id, level, source, message, created_at FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?`

func (q *Queries) ListNotifications(ctx context.Context, limit int64) ([]Notification, error) {
	rows, err := q.db.QueryContext(ctx, listNotifications, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Level, &n.Source, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

const trimNotifications = `
DELETE FROM notifications WHERE id NOT IN (
    SELECT id FROM notifications ORDER BY created_at DESC, id DESC LIMIT ?
)`

func (q *Queries) TrimNotifications(ctx context.Context, keep int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, trimNotifications, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllNotifications = `DELETE FROM notifications`

func (q *Queries) DeleteAllNotifications(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteAllNotifications)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countNotifications = `SELECT COUNT(*) FROM notifications`

func (q *Queries) CountNotifications(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countNotifications).Scan(&n)
	return n, err
}
