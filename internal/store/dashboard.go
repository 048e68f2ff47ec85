package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

type savedDashboardStore struct {
	client *firestore.Client
}

func NewSavedDashboardStore(client *firestore.Client) *savedDashboardStore {
	return &savedDashboardStore{client: client}
}

func (s *savedDashboardStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("saved_dashboards")
}

func (s *savedDashboardStore) Save(ctx context.Context, uid string, d *models.SavedDashboard) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.collection(uid).Doc(d.ID).Set(ctx, d)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to save dashboard", err)
	}
	return nil
}

func (s *savedDashboardStore) Get(ctx context.Context, uid, id string) (*models.SavedDashboard, error) {
	doc, err := s.collection(uid).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errs.NewNotFoundError("saved dashboard not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get saved dashboard", err)
	}
	var d models.SavedDashboard
	if err := doc.DataTo(&d); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse saved dashboard data", err)
	}
	return &d, nil
}

func (s *savedDashboardStore) List(ctx context.Context, uid string) ([]*models.SavedDashboard, error) {
	docs, err := s.collection(uid).OrderBy("updatedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list saved dashboards", err)
	}
	out := make([]*models.SavedDashboard, 0, len(docs))
	for _, doc := range docs {
		var d models.SavedDashboard
		if err := doc.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse saved dashboard data", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

func (s *savedDashboardStore) Delete(ctx context.Context, uid, id string) error {
	_, err := s.collection(uid).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("saved dashboard not found")
		}
		return errs.NewDatabaseError("delete", "failed to delete saved dashboard", err)
	}
	return nil
}
