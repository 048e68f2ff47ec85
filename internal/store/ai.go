package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

// aiStore keeps copilot chat turns under users/{uid}/ai_sessions/{sessionId}/messages.
// Firestore's TTL policy on expiresAt deletes lazily, so reads also skip expired turns.
type aiStore struct {
	client *firestore.Client
	now    func() time.Time
}

func NewAIStore(client *firestore.Client) *aiStore {
	return &aiStore{client: client, now: time.Now}
}

func (s *aiStore) messagesCollection(uid, sessionID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("ai_sessions").Doc(sessionID).Collection("messages")
}

func (s *aiStore) SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	_, _, err := s.messagesCollection(uid, sessionID).Add(ctx, msg)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to save chat message", err)
	}
	return nil
}

// ListMessages returns the latest unexpired turns of a session, oldest first.
func (s *aiStore) ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error) {
	query := s.messagesCollection(uid, sessionID).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	now := s.now()
	out := make([]models.AIMessage, 0, max(limit, 0))
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list chat messages", err)
		}
		var msg models.AIMessage
		if err := doc.DataTo(&msg); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse chat message", err)
		}
		if !msg.ExpiresAt.IsZero() && !msg.ExpiresAt.After(now) {
			continue
		}
		out = append(out, msg)
	}

	// newest-first from the query
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// PurgeExpired deletes expired turns across every session.
func (s *aiStore) PurgeExpired(ctx context.Context) (int64, error) {
	iter := s.client.CollectionGroup("messages").
		Where("expiresAt", "<=", s.now()).
		Documents(ctx)
	defer iter.Stop()

	bw := s.client.BulkWriter(ctx)
	var purged int64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return purged, errs.NewDatabaseError("delete", "failed to query expired chat messages", err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			bw.End()
			return purged, errs.NewDatabaseError("delete", "failed to delete chat message", err)
		}
		purged++
	}
	bw.End()
	return purged, nil
}
