package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

type savedDashboardStore struct {
	db *sql.DB
}

func NewSavedDashboardStore(db *sql.DB) *savedDashboardStore {
	return &savedDashboardStore{db: db}
}

func (s *savedDashboardStore) Save(ctx context.Context, uid string, d *models.SavedDashboard) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
INSERT INTO saved_dashboards (uid, id, title, intent, payload, created_at_unix_ms, updated_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(uid, id) DO UPDATE SET
  title = excluded.title,
  intent = excluded.intent,
  payload = excluded.payload,
  updated_at_unix_ms = excluded.updated_at_unix_ms
`, uid, d.ID, d.Title, string(d.Intent), d.Payload, toUnixMs(d.CreatedAt), toUnixMs(d.UpdatedAt))
	if err != nil {
		return errs.NewDatabaseError("create", "failed to save dashboard", err)
	}
	return nil
}

func (s *savedDashboardStore) Get(ctx context.Context, uid, id string) (*models.SavedDashboard, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, title, intent, payload, created_at_unix_ms, updated_at_unix_ms
FROM saved_dashboards
WHERE uid = ? AND id = ?
`, uid, id)

	d, err := scanSaved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFoundError("saved dashboard not found")
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to get saved dashboard", err)
	}
	return d, nil
}

func (s *savedDashboardStore) List(ctx context.Context, uid string) ([]*models.SavedDashboard, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, intent, payload, created_at_unix_ms, updated_at_unix_ms
FROM saved_dashboards
WHERE uid = ?
ORDER BY updated_at_unix_ms DESC, id DESC
`, uid)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list saved dashboards", err)
	}
	defer rows.Close()

	out := []*models.SavedDashboard{}
	for rows.Next() {
		d, err := scanSaved(rows)
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse saved dashboard row", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list saved dashboards", err)
	}
	return out, nil
}

func (s *savedDashboardStore) Delete(ctx context.Context, uid, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_dashboards WHERE uid = ? AND id = ?`, uid, id)
	if err != nil {
		return errs.NewDatabaseError("delete", "failed to delete saved dashboard", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.NewNotFoundError("saved dashboard not found")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSaved(row scanner) (*models.SavedDashboard, error) {
	var (
		d                  models.SavedDashboard
		intent             string
		createdMs, updated int64
	)
	if err := row.Scan(&d.ID, &d.Title, &intent, &d.Payload, &createdMs, &updated); err != nil {
		return nil, err
	}
	d.Intent = models.Intent(intent)
	d.CreatedAt = fromUnixMs(createdMs)
	d.UpdatedAt = fromUnixMs(updated)
	return &d, nil
}
