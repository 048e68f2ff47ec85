package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

type aiStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAIStore(db *sql.DB) *aiStore {
	return &aiStore{db: db, now: time.Now}
}

func (s *aiStore) SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO ai_messages (uid, session_id, role, content, action, created_at_unix_ms, expires_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, uid, sessionID, msg.Role, msg.Content, msg.Action, toUnixMs(msg.CreatedAt), toUnixMs(msg.ExpiresAt))
	if err != nil {
		return errs.NewDatabaseError("create", "failed to save AI message", err)
	}
	return nil
}

// ListMessages returns the most recent unexpired messages, oldest first.
func (s *aiStore) ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT role, content, action, created_at_unix_ms, expires_at_unix_ms
FROM ai_messages
WHERE uid = ? AND session_id = ? AND (expires_at_unix_ms = 0 OR expires_at_unix_ms > ?)
ORDER BY created_at_unix_ms DESC, id DESC
LIMIT ?
`, uid, sessionID, s.now().UnixMilli(), limit)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list AI messages", err)
	}
	defer rows.Close()

	var out []models.AIMessage
	for rows.Next() {
		var (
			msg                models.AIMessage
			createdMs, expires int64
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Action, &createdMs, &expires); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse AI message row", err)
		}
		msg.CreatedAt = fromUnixMs(createdMs)
		msg.ExpiresAt = fromUnixMs(expires)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list AI messages", err)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PurgeExpired deletes messages whose TTL has elapsed. Firestore does this
// with a TTL policy on expiresAt.
func (s *aiStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
DELETE FROM ai_messages WHERE expires_at_unix_ms > 0 AND expires_at_unix_ms <= ?
`, s.now().UnixMilli())
	if err != nil {
		return 0, errs.NewDatabaseError("delete", "failed to purge expired AI messages", err)
	}
	return res.RowsAffected()
}
