package worker

import (
	"context"
	"testing"

	"equilo/internal/core"
	"equilo/internal/event"
	"equilo/internal/storage/storagetest"
)

func seed(t *testing.T, store *storagetest.MemStore) (*core.Place, *core.User) {
	t.Helper()
	ctx := context.Background()
	u := &core.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	p := &core.Place{Name: "Home", CreatedBy: u.ID}
	if err := store.CreatePlace(ctx, p); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if _, err := store.AddMember(ctx, p.ID, u.ID, core.RoleOwner); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return p, u
}

func TestHandleInviteCreated(t *testing.T) {
	store := storagetest.New()
	w := NewNotifyWorker(store)
	ctx := context.Background()
	place, alice := seed(t, store)

	invite := &core.Invite{PlaceID: place.ID, Email: "bob@example.com", Token: "tok", InvitedBy: alice.ID}
	if err := store.CreateInvite(ctx, invite); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}

	ev := event.NewEvent(event.TypeInviteCreated, place.ID, alice.ID, invite.ID)
	if err := w.Handle(ctx, ev); err != nil {
		t.Errorf("pending invite: %v", err)
	}

	// A redeemed invite needs no notification, and no requeue.
	if err := store.UpdateInviteStatus(ctx, invite.ID, core.InviteStatusAccepted); err != nil {
		t.Fatalf("UpdateInviteStatus: %v", err)
	}
	if err := w.Handle(ctx, ev); err != nil {
		t.Errorf("accepted invite: %v", err)
	}
}

func TestHandleToleratesDeletedRecords(t *testing.T) {
	store := storagetest.New()
	w := NewNotifyWorker(store)
	ctx := context.Background()
	place, alice := seed(t, store)

	// Both subjects are gone: the deliveries must ack, not requeue.
	tests := []*event.Event{
		event.NewEvent(event.TypeInviteCreated, place.ID, alice.ID, 9999),
		event.NewEvent(event.TypeExpenseCreated, place.ID, alice.ID, 9999),
	}
	for _, ev := range tests {
		if err := w.Handle(ctx, ev); err != nil {
			t.Errorf("%s with missing subject: %v", ev.Type, err)
		}
	}
}

func TestHandleExpenseEvents(t *testing.T) {
	store := storagetest.New()
	w := NewNotifyWorker(store)
	ctx := context.Background()
	place, alice := seed(t, store)

	expense := &core.Expense{
		PlaceID:      place.ID,
		Amount:       core.Money{Cents: 2000},
		Description:  "groceries",
		Date:         core.NewDate(2024, 6, 12),
		PaidBy:       alice.ID,
		AddedBy:      alice.ID,
		SplitUserIDs: []int64{alice.ID},
	}
	if err := store.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := w.Handle(ctx, event.NewEvent(event.TypeExpenseCreated, place.ID, alice.ID, expense.ID)); err != nil {
		t.Errorf("expense created: %v", err)
	}
	if err := w.Handle(ctx, event.NewEvent(event.TypeExpenseDeleted, place.ID, alice.ID, expense.ID)); err != nil {
		t.Errorf("expense deleted: %v", err)
	}
}

func TestHandleUnknownTypeDropped(t *testing.T) {
	w := NewNotifyWorker(storagetest.New())
	if err := w.Handle(context.Background(), event.NewEvent("mystery.event", 1, 1, 1)); err != nil {
		t.Errorf("unknown type must be dropped, got %v", err)
	}
}
