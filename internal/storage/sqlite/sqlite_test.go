package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"equilo/internal/core"
	"equilo/internal/storage"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, username string) *core.User {
	t.Helper()
	u := &core.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser %s: %v", username, err)
	}
	return u
}

func seedPlace(t *testing.T, s *Store, owner *core.User) *core.Place {
	t.Helper()
	ctx := context.Background()
	p := &core.Place{Name: "Home", CreatedBy: owner.ID}
	if err := s.CreatePlace(ctx, p); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if _, err := s.AddMember(ctx, p.ID, owner.ID, core.RoleOwner); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	return p
}

func TestUsers(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice")
	if alice.ID == 0 {
		t.Fatal("user has no ID")
	}

	got, err := s.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Username != "alice" || got.Email != "alice@example.com" {
		t.Errorf("user = %+v", got)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != alice.ID {
		t.Errorf("lookup mismatch: %d vs %d", byName.ID, alice.ID)
	}

	dup := &core.User{Username: "alice", Email: "dup@example.com", PasswordHash: "x"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate username: %v, want conflict", err)
	}
	if _, err := s.GetUserByID(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown user: %v, want not found", err)
	}
}

func TestMembership(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	place := seedPlace(t, s, alice)

	if _, err := s.AddMember(ctx, place.ID, bob.ID, core.RoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if _, err := s.AddMember(ctx, place.ID, bob.ID, core.RoleMember); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("double join: %v, want conflict", err)
	}

	ok, err := s.IsMember(ctx, place.ID, bob.ID)
	if err != nil || !ok {
		t.Errorf("IsMember(bob) = %v, %v", ok, err)
	}
	ok, err = s.IsMember(ctx, place.ID, 9999)
	if err != nil || ok {
		t.Errorf("IsMember(unknown) = %v, %v", ok, err)
	}

	members, err := s.ListMembers(ctx, place.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 || members[0].Role != core.RoleOwner {
		t.Errorf("members = %+v", members)
	}

	places, err := s.ListPlacesForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListPlacesForUser: %v", err)
	}
	if len(places) != 1 || places[0].ID != place.ID {
		t.Errorf("places = %+v", places)
	}
}

func TestCategories(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	place := seedPlace(t, s, alice)

	cat := &core.Category{PlaceID: place.ID, Name: "Groceries"}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	dup := &core.Category{PlaceID: place.ID, Name: "Groceries"}
	if err := s.CreateCategory(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate category: %v, want conflict", err)
	}

	byName, err := s.GetCategoryByName(ctx, place.ID, "Groceries")
	if err != nil || byName.ID != cat.ID {
		t.Errorf("GetCategoryByName = %+v, %v", byName, err)
	}

	cat.Name = "Food"
	if err := s.UpdateCategory(ctx, cat); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	got, err := s.GetCategory(ctx, place.ID, cat.ID)
	if err != nil || got.Name != "Food" {
		t.Errorf("after update: %+v, %v", got, err)
	}

	if err := s.DeleteCategory(ctx, place.ID, cat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := s.DeleteCategory(ctx, place.ID, cat.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: %v, want not found", err)
	}
}

func TestDeleteCategoryClearsExpenseReference(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	place := seedPlace(t, s, alice)

	cat := &core.Category{PlaceID: place.ID, Name: "Groceries"}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	expense := &core.Expense{
		PlaceID:      place.ID,
		Amount:       core.Money{Cents: 1500},
		Description:  "weekly shop",
		Date:         core.NewDate(2024, 6, 12),
		PaidBy:       alice.ID,
		AddedBy:      alice.ID,
		CategoryID:   &cat.ID,
		SplitUserIDs: []int64{alice.ID},
	}
	if err := s.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	if err := s.DeleteCategory(ctx, place.ID, cat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}

	got, err := s.GetExpense(ctx, place.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.CategoryID != nil {
		t.Errorf("category reference survived deletion: %v", *got.CategoryID)
	}
}

func TestInvites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	place := seedPlace(t, s, alice)

	inv := &core.Invite{PlaceID: place.ID, Email: "bob@example.com", Token: "tok-1", InvitedBy: alice.ID}
	if err := s.CreateInvite(ctx, inv); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	if inv.Status != core.InviteStatusPending {
		t.Errorf("status = %s", inv.Status)
	}

	dup := &core.Invite{PlaceID: place.ID, Email: "bob@example.com", Token: "tok-2", InvitedBy: alice.ID}
	if err := s.CreateInvite(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate email: %v, want conflict", err)
	}

	byToken, err := s.GetInviteByToken(ctx, "tok-1")
	if err != nil || byToken.ID != inv.ID {
		t.Errorf("GetInviteByToken = %+v, %v", byToken, err)
	}
	if _, err := s.GetInviteByToken(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown token: %v", err)
	}

	if err := s.UpdateInviteStatus(ctx, inv.ID, core.InviteStatusAccepted); err != nil {
		t.Fatalf("UpdateInviteStatus: %v", err)
	}
	got, err := s.GetInvite(ctx, place.ID, inv.ID)
	if err != nil || got.Status != core.InviteStatusAccepted {
		t.Errorf("after update: %+v, %v", got, err)
	}

	if err := s.DeleteInvite(ctx, place.ID, inv.ID); err != nil {
		t.Fatalf("DeleteInvite: %v", err)
	}
	if _, err := s.GetInvite(ctx, place.ID, inv.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted invite readable: %v", err)
	}
}

func TestExpenseRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	bob := seedUser(t, s, "bob")
	place := seedPlace(t, s, alice)
	if _, err := s.AddMember(ctx, place.ID, bob.ID, core.RoleMember); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	expense := &core.Expense{
		PlaceID:      place.ID,
		Amount:       core.Money{Cents: 2550},
		Description:  "groceries",
		Date:         core.NewDate(2024, 6, 12),
		PaidBy:       alice.ID,
		AddedBy:      alice.ID,
		SplitUserIDs: []int64{bob.ID, alice.ID},
	}
	if err := s.CreateExpense(ctx, expense); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	got, err := s.GetExpense(ctx, place.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Amount.Cents != 2550 || got.Description != "groceries" || got.Date.String() != "2024-06-12" {
		t.Errorf("expense = %+v", got)
	}
	// Splits come back ordered by user ID.
	if len(got.SplitUserIDs) != 2 || got.SplitUserIDs[0] != alice.ID || got.SplitUserIDs[1] != bob.ID {
		t.Errorf("splits = %v", got.SplitUserIDs)
	}

	got.Amount = core.Money{Cents: 3000}
	got.SplitUserIDs = []int64{alice.ID}
	if err := s.UpdateExpense(ctx, got); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	updated, err := s.GetExpense(ctx, place.ID, expense.ID)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if updated.Amount.Cents != 3000 || len(updated.SplitUserIDs) != 1 {
		t.Errorf("after update: %+v", updated)
	}

	if err := s.DeleteExpense(ctx, place.ID, expense.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if _, err := s.GetExpense(ctx, place.ID, expense.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted expense readable: %v", err)
	}
}

func TestExpensesInRange(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice")
	place := seedPlace(t, s, alice)

	for _, day := range []int{9, 10, 12, 16, 17} {
		e := &core.Expense{
			PlaceID:      place.ID,
			Amount:       core.Money{Cents: 1000},
			Description:  "expense",
			Date:         core.NewDate(2024, 6, day),
			PaidBy:       alice.ID,
			AddedBy:      alice.ID,
			SplitUserIDs: []int64{alice.ID},
		}
		if err := s.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense day %d: %v", day, err)
		}
	}

	r := core.PeriodRange{From: core.NewDate(2024, 6, 10), To: core.NewDate(2024, 6, 16)}
	got, err := s.ExpensesInRange(ctx, place.ID, r)
	if err != nil {
		t.Fatalf("ExpensesInRange: %v", err)
	}
	// Bounds are inclusive: 10, 12 and 16 qualify.
	if len(got) != 3 {
		t.Fatalf("got %d expenses, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Errorf("range results out of order")
		}
	}

	all, err := s.ListExpenses(ctx, place.ID)
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("got %d expenses, want 5", len(all))
	}
	if all[0].Date.String() != "2024-06-17" {
		t.Errorf("newest first, got %s", all[0].Date)
	}
}
