// Package worker consumes domain events and turns them into member
// notifications.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"equilo/internal/core"
	"equilo/internal/event"
	"equilo/internal/storage"
)

// NotifyWorker renders notifications for invite and ledger activity.
// Delivery is the log for now; the handler shape leaves room for a mail
// or push transport later.
type NotifyWorker struct {
	store storage.Store
}

func NewNotifyWorker(store storage.Store) *NotifyWorker {
	return &NotifyWorker{store: store}
}

// Handle dispatches one event. Returning an error requeues the
// delivery, so lookups that can never succeed (deleted records) are
// treated as done.
func (w *NotifyWorker) Handle(ctx context.Context, ev *event.Event) error {
	switch ev.Type {
	case event.TypeInviteCreated:
		return w.handleInviteCreated(ctx, ev)
	case event.TypeExpenseCreated:
		return w.handleExpenseCreated(ctx, ev)
	case event.TypeExpenseDeleted:
		w.logActivity(ctx, ev, "expense removed")
		return nil
	default:
		slog.WarnContext(ctx, "Unknown event type, dropping", "type", ev.Type)
		return nil
	}
}

func (w *NotifyWorker) handleInviteCreated(ctx context.Context, ev *event.Event) error {
	invite, err := w.store.GetInvite(ctx, ev.PlaceID, ev.SubjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Invite gone before notification", "invite_id", ev.SubjectID)
			return nil
		}
		return fmt.Errorf("load invite: %w", err)
	}
	if invite.Status != core.InviteStatusPending {
		// Already redeemed or revoked; nothing to send.
		return nil
	}

	place, err := w.store.GetPlace(ctx, invite.PlaceID)
	if err != nil {
		return fmt.Errorf("load place: %w", err)
	}

	slog.InfoContext(ctx, "Invite notification",
		"email", invite.Email,
		"place", place.Name,
		"token", invite.Token)
	return nil
}

func (w *NotifyWorker) handleExpenseCreated(ctx context.Context, ev *event.Event) error {
	expense, err := w.store.GetExpense(ctx, ev.PlaceID, ev.SubjectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted before we got to it.
			return nil
		}
		return fmt.Errorf("load expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense activity",
		"place_id", ev.PlaceID,
		"expense_id", expense.ID,
		"description", expense.Description,
		"amount", expense.Amount.String(),
		"paid_by", expense.PaidBy,
		"split_count", len(expense.SplitUserIDs))
	return nil
}

func (w *NotifyWorker) logActivity(ctx context.Context, ev *event.Event, msg string) {
	slog.InfoContext(ctx, msg,
		"place_id", ev.PlaceID,
		"actor_id", ev.ActorID,
		"subject_id", ev.SubjectID)
}
