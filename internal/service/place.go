package service

import (
	"context"
	"fmt"
	"log/slog"

	"equilo/internal/core"
	"equilo/internal/storage"
)

// PlaceService manages places, their members and expense categories.
type PlaceService struct {
	store storage.Store
}

func NewPlaceService(store storage.Store) *PlaceService {
	return &PlaceService{store: store}
}

// CreatePlace creates a place, enrolls the creator as owner and seeds
// the default categories.
func (s *PlaceService) CreatePlace(ctx context.Context, ownerID int64, name string) (*core.Place, error) {
	place := &core.Place{Name: name, CreatedBy: ownerID}
	if err := place.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreatePlace(ctx, place); err != nil {
		return nil, err
	}
	if _, err := s.store.AddMember(ctx, place.ID, ownerID, core.RoleOwner); err != nil {
		return nil, fmt.Errorf("enroll owner: %w", err)
	}
	for _, name := range core.DefaultCategories {
		category := &core.Category{PlaceID: place.ID, Name: name}
		if err := s.store.CreateCategory(ctx, category); err != nil {
			return nil, fmt.Errorf("seed category %q: %w", name, err)
		}
	}

	slog.InfoContext(ctx, "Place created", "place_id", place.ID, "owner_id", ownerID)
	return place, nil
}

// ListPlaces returns the places the user belongs to, newest first.
func (s *PlaceService) ListPlaces(ctx context.Context, userID int64) ([]core.Place, error) {
	return s.store.ListPlacesForUser(ctx, userID)
}

// GetPlace returns a place the user is a member of.
func (s *PlaceService) GetPlace(ctx context.Context, placeID, userID int64) (*core.Place, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	return s.store.GetPlace(ctx, placeID)
}

// ListMembers returns the place's members in join order.
func (s *PlaceService) ListMembers(ctx context.Context, placeID, userID int64) ([]core.Member, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, placeID)
}

// RequireMember returns ErrForbidden when userID does not belong to the
// place. An unknown place surfaces as storage.ErrNotFound.
func (s *PlaceService) RequireMember(ctx context.Context, placeID, userID int64) error {
	if _, err := s.store.GetPlace(ctx, placeID); err != nil {
		return err
	}
	ok, err := s.store.IsMember(ctx, placeID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Categories

func (s *PlaceService) CreateCategory(ctx context.Context, placeID, userID int64, name string) (*core.Category, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	category := &core.Category{PlaceID: placeID, Name: name}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *PlaceService) GetCategory(ctx context.Context, placeID, userID, categoryID int64) (*core.Category, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	return s.store.GetCategory(ctx, placeID, categoryID)
}

func (s *PlaceService) ListCategories(ctx context.Context, placeID, userID int64) ([]core.Category, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, placeID)
}

func (s *PlaceService) UpdateCategory(ctx context.Context, placeID, userID, categoryID int64, name string) (*core.Category, error) {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return nil, err
	}
	category := &core.Category{ID: categoryID, PlaceID: placeID, Name: name}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *PlaceService) DeleteCategory(ctx context.Context, placeID, userID, categoryID int64) error {
	if err := s.RequireMember(ctx, placeID, userID); err != nil {
		return err
	}
	return s.store.DeleteCategory(ctx, placeID, categoryID)
}
