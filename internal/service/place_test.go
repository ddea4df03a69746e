package service

import (
	"context"
	"errors"
	"testing"

	"equilo/internal/core"
	"equilo/internal/storage"
	"equilo/internal/storage/storagetest"
)

// seedUser inserts a user directly, bypassing registration.
func seedUser(t *testing.T, store *storagetest.MemStore, username string) *core.User {
	t.Helper()
	u := &core.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func TestCreatePlaceSeedsOwnerAndCategories(t *testing.T) {
	store := storagetest.New()
	svc := NewPlaceService(store)
	ctx := context.Background()
	owner := seedUser(t, store, "alice")

	place, err := svc.CreatePlace(ctx, owner.ID, "Via Roma 1")
	if err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if place.CreatedBy != owner.ID {
		t.Errorf("created_by = %d", place.CreatedBy)
	}

	members, err := svc.ListMembers(ctx, place.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 || members[0].User.ID != owner.ID || members[0].Role != core.RoleOwner {
		t.Errorf("members = %+v", members)
	}

	cats, err := svc.ListCategories(ctx, place.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != len(core.DefaultCategories) {
		t.Fatalf("got %d categories, want %d", len(cats), len(core.DefaultCategories))
	}
	names := map[string]bool{}
	for _, c := range cats {
		names[c.Name] = true
	}
	for _, want := range core.DefaultCategories {
		if !names[want] {
			t.Errorf("default category %q missing", want)
		}
	}
}

func TestCreatePlaceValidation(t *testing.T) {
	store := storagetest.New()
	svc := NewPlaceService(store)
	owner := seedUser(t, store, "alice")

	if _, err := svc.CreatePlace(context.Background(), owner.ID, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("blank name: %v", err)
	}
}

func TestRequireMember(t *testing.T) {
	store := storagetest.New()
	svc := NewPlaceService(store)
	ctx := context.Background()
	owner := seedUser(t, store, "alice")
	outsider := seedUser(t, store, "mallory")

	place, err := svc.CreatePlace(ctx, owner.ID, "Home")
	if err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	if err := svc.RequireMember(ctx, place.ID, owner.ID); err != nil {
		t.Errorf("owner rejected: %v", err)
	}
	if err := svc.RequireMember(ctx, place.ID, outsider.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider: %v, want forbidden", err)
	}
	// Unknown place wins over membership: 404, not 403.
	if err := svc.RequireMember(ctx, 9999, outsider.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown place: %v, want not found", err)
	}
}

func TestListPlacesScopedToUser(t *testing.T) {
	store := storagetest.New()
	svc := NewPlaceService(store)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	if _, err := svc.CreatePlace(ctx, alice.ID, "Alice's flat"); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if _, err := svc.CreatePlace(ctx, bob.ID, "Bob's flat"); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	places, err := svc.ListPlaces(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListPlaces: %v", err)
	}
	if len(places) != 1 || places[0].Name != "Alice's flat" {
		t.Errorf("places = %+v", places)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	store := storagetest.New()
	svc := NewPlaceService(store)
	ctx := context.Background()
	owner := seedUser(t, store, "alice")
	outsider := seedUser(t, store, "mallory")

	place, err := svc.CreatePlace(ctx, owner.ID, "Home")
	if err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	cat, err := svc.CreateCategory(ctx, place.ID, owner.ID, "Streaming")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	if _, err := svc.CreateCategory(ctx, place.ID, owner.ID, "Streaming"); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate category: %v, want conflict", err)
	}
	if _, err := svc.CreateCategory(ctx, place.ID, outsider.ID, "Nope"); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider create: %v, want forbidden", err)
	}

	updated, err := svc.UpdateCategory(ctx, place.ID, owner.ID, cat.ID, "Subscriptions")
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.Name != "Subscriptions" {
		t.Errorf("updated name = %s", updated.Name)
	}
	got, err := svc.GetCategory(ctx, place.ID, owner.ID, cat.ID)
	if err != nil || got.Name != "Subscriptions" {
		t.Errorf("GetCategory = %+v, %v", got, err)
	}

	if err := svc.DeleteCategory(ctx, place.ID, owner.ID, cat.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if err := svc.DeleteCategory(ctx, place.ID, owner.ID, cat.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete: %v, want not found", err)
	}
}
