package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"equilo/internal/core"
	"equilo/internal/event"
	"equilo/internal/metrics"
	"equilo/internal/storage"
)

// InviteService issues and redeems place invitations.
type InviteService struct {
	store  storage.Store
	events event.Publisher
}

func NewInviteService(store storage.Store, events event.Publisher) *InviteService {
	return &InviteService{store: store, events: events}
}

// CreateInvite issues a pending invitation for an email address. Each
// place carries at most one invite per email.
func (s *InviteService) CreateInvite(ctx context.Context, placeID, inviterID int64, email string) (*core.Invite, error) {
	ok, err := s.store.IsMember(ctx, placeID, inviterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	invite := &core.Invite{
		PlaceID:   placeID,
		Email:     email,
		Token:     uuid.NewString(),
		InvitedBy: inviterID,
		Status:    core.InviteStatusPending,
	}
	if err := invite.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}

	s.publish(ctx, event.NewEvent(event.TypeInviteCreated, placeID, inviterID, invite.ID))

	slog.InfoContext(ctx, "Invite created",
		"invite_id", invite.ID, "place_id", placeID, "invited_by", inviterID)
	return invite, nil
}

// GetByToken looks an invite up by its opaque token. Used for the
// public invite preview, so no membership check.
func (s *InviteService) GetByToken(ctx context.Context, token string) (*core.Invite, error) {
	return s.store.GetInviteByToken(ctx, token)
}

// PlaceOf loads the place an invite points at, without a membership
// check. Only the invite preview uses it.
func (s *InviteService) PlaceOf(ctx context.Context, invite *core.Invite) (*core.Place, error) {
	return s.store.GetPlace(ctx, invite.PlaceID)
}

// Join redeems a pending invite for the authenticated user and enrolls
// them as a regular member. Redeeming twice, or after revocation, fails
// with ErrInviteClosed.
func (s *InviteService) Join(ctx context.Context, token string, userID int64) (*core.Place, error) {
	invite, err := s.store.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.Status != core.InviteStatusPending {
		return nil, ErrInviteClosed
	}

	if _, err := s.store.AddMember(ctx, invite.PlaceID, userID, core.RoleMember); err != nil {
		// Already a member: still close out the invite below.
		if !errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("enroll member: %w", err)
		}
	}
	if err := s.store.UpdateInviteStatus(ctx, invite.ID, core.InviteStatusAccepted); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Invite accepted",
		"invite_id", invite.ID, "place_id", invite.PlaceID, "user_id", userID)
	return s.store.GetPlace(ctx, invite.PlaceID)
}

// ListInvites returns a place's invites, newest first.
func (s *InviteService) ListInvites(ctx context.Context, placeID, userID int64) ([]core.Invite, error) {
	ok, err := s.store.IsMember(ctx, placeID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return s.store.ListInvites(ctx, placeID)
}

// RevokeInvite deletes an invite before it is redeemed.
func (s *InviteService) RevokeInvite(ctx context.Context, placeID, userID, inviteID int64) error {
	ok, err := s.store.IsMember(ctx, placeID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return s.store.DeleteInvite(ctx, placeID, inviteID)
}

func (s *InviteService) publish(ctx context.Context, ev *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		// Invite is saved either way; notifications are best effort.
		slog.ErrorContext(ctx, "Failed to publish event", "type", ev.Type, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
}
