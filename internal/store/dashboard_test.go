package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

func TestSavedDashboardStoreWithEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	defer client.Close()

	store := NewSavedDashboardStore(client)
	uid := "user-saved"

	d := &models.SavedDashboard{ID: "d1", Title: "Notas", Intent: models.IntentEquityGap, Payload: "cipher"}
	if err := store.Save(ctx, uid, d); err != nil {
		t.Fatalf("save error: %v", err)
	}

	got, err := store.Get(ctx, uid, "d1")
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Payload != "cipher" || got.Intent != models.IntentEquityGap {
		t.Fatalf("unexpected saved dashboard: %+v", got)
	}

	list, err := store.List(ctx, uid)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) == 0 {
		t.Fatal("expected at least one saved dashboard")
	}

	if err := store.Delete(ctx, uid, "d1"); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	var nf *errs.NotFoundError
	if err := store.Delete(ctx, uid, "d1"); !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestAIStoreWithEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	defer client.Close()

	store := NewAIStore(client)
	for _, content := range []string{"one", "two", "three"} {
		if err := store.SaveMessage(ctx, "user-ai", "s1", models.AIMessage{Role: "user", Content: content}); err != nil {
			t.Fatalf("save message error: %v", err)
		}
	}

	msgs, err := store.ListMessages(ctx, "user-ai", "s1", 2)
	if err != nil {
		t.Fatalf("list messages error: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "three" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}
