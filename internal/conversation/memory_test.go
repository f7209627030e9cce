package conversation

import (
	"context"
	"testing"

	"github.com/procureflow/agent/pkg/models"
)

func TestMemoryStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	conv := &models.Conversation{UserID: "u1"}
	created, err := store.Insert(ctx, conv)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected Insert to assign an ID")
	}

	got, err := store.Find(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestMemoryStoreFindWrongOwnerIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, _ := store.Insert(ctx, &models.Conversation{UserID: "u1"})

	_, err := store.Find(ctx, created.ID, "someone-else")
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreAppendMessagesIsAtomicPerConversation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	created, _ := store.Insert(ctx, &models.Conversation{UserID: "u1"})

	msgs := []models.Message{
		{Sender: models.SenderUser, Content: "hello"},
		{Sender: models.SenderAgent, Content: "hi there"},
	}
	if err := store.AppendMessages(ctx, created.ID, msgs); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	got, err := store.Find(ctx, created.ID, "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
}

func TestMemoryStoreListByUserSortsByUpdatedDesc(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, _ := store.Insert(ctx, &models.Conversation{UserID: "u1"})
	b, _ := store.Insert(ctx, &models.Conversation{UserID: "u1"})

	// Touch b so it becomes the most recently updated.
	preview := "latest"
	if err := store.UpdateMetadata(ctx, b.ID, MetadataUpdate{LastMessagePreview: &preview}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	summaries, err := store.ListByUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	if summaries[0].ID != b.ID {
		t.Errorf("summaries[0].ID = %q, want %q (most recently updated)", summaries[0].ID, b.ID)
	}
	_ = a
}

func TestMemoryStoreListByUserRespectsLimit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		store.Insert(ctx, &models.Conversation{UserID: "u1"})
	}

	summaries, err := store.ListByUser(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("len(summaries) = %d, want 2", len(summaries))
	}
}
