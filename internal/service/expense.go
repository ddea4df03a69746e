package service

import (
	"context"
	"log/slog"

	"equilo/internal/core"
	"equilo/internal/event"
	"equilo/internal/metrics"
	"equilo/internal/storage"
)

// SummaryInvalidator drops cached summaries of a place after its ledger
// changes.
type SummaryInvalidator interface {
	Invalidate(placeID int64)
}

// ExpenseInput carries the client-supplied fields of an expense write.
// PaidBy zero means "the acting user".
type ExpenseInput struct {
	Amount       core.Money
	Description  string
	Date         core.Date
	PaidBy       int64
	CategoryID   *int64
	SplitUserIDs []int64
}

// ExpenseService manages the expense ledger of a place.
type ExpenseService struct {
	store     storage.Store
	events    event.Publisher
	summaries SummaryInvalidator
}

func NewExpenseService(store storage.Store, events event.Publisher, summaries SummaryInvalidator) *ExpenseService {
	return &ExpenseService{store: store, events: events, summaries: summaries}
}

// CreateExpense records a new expense. The payer falls back to the
// acting user when absent or not a member, split users are filtered to
// members, and an empty split collapses to the payer alone.
func (s *ExpenseService) CreateExpense(ctx context.Context, placeID, actorID int64, in ExpenseInput) (*core.Expense, error) {
	if err := s.requireMember(ctx, placeID, actorID); err != nil {
		return nil, err
	}
	expense, err := s.normalize(ctx, placeID, actorID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, err
	}

	s.invalidate(placeID)
	s.publish(ctx, event.NewEvent(event.TypeExpenseCreated, placeID, actorID, expense.ID))

	slog.InfoContext(ctx, "Expense created",
		"expense_id", expense.ID, "place_id", placeID,
		"amount_cents", expense.Amount.Cents, "paid_by", expense.PaidBy)
	return expense, nil
}

// GetExpense returns one expense of a place the actor belongs to.
func (s *ExpenseService) GetExpense(ctx context.Context, placeID, actorID, expenseID int64) (*core.Expense, error) {
	if err := s.requireMember(ctx, placeID, actorID); err != nil {
		return nil, err
	}
	return s.store.GetExpense(ctx, placeID, expenseID)
}

// ListExpenses returns the place's ledger, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, placeID, actorID int64) ([]core.Expense, error) {
	if err := s.requireMember(ctx, placeID, actorID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, placeID)
}

// UpdateExpense rewrites an expense in place, keeping its identity and
// creation metadata. The same payer and split normalization as create
// applies.
func (s *ExpenseService) UpdateExpense(ctx context.Context, placeID, actorID, expenseID int64, in ExpenseInput) (*core.Expense, error) {
	if err := s.requireMember(ctx, placeID, actorID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetExpense(ctx, placeID, expenseID)
	if err != nil {
		return nil, err
	}
	expense, err := s.normalize(ctx, placeID, actorID, in)
	if err != nil {
		return nil, err
	}
	expense.ID = existing.ID
	expense.AddedBy = existing.AddedBy
	expense.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateExpense(ctx, expense); err != nil {
		return nil, err
	}
	s.invalidate(placeID)
	return expense, nil
}

// DeleteExpense removes an expense and its splits.
func (s *ExpenseService) DeleteExpense(ctx context.Context, placeID, actorID, expenseID int64) error {
	if err := s.requireMember(ctx, placeID, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, placeID, expenseID); err != nil {
		return err
	}

	s.invalidate(placeID)
	s.publish(ctx, event.NewEvent(event.TypeExpenseDeleted, placeID, actorID, expenseID))
	return nil
}

// normalize resolves the payer, split set and category of an incoming
// expense against the place's membership.
func (s *ExpenseService) normalize(ctx context.Context, placeID, actorID int64, in ExpenseInput) (*core.Expense, error) {
	members, err := s.store.ListMembers(ctx, placeID)
	if err != nil {
		return nil, err
	}
	memberIDs := make(map[int64]bool, len(members))
	for _, m := range members {
		memberIDs[m.User.ID] = true
	}

	paidBy := in.PaidBy
	if paidBy == 0 || !memberIDs[paidBy] {
		paidBy = actorID
	}

	var splits []int64
	seen := map[int64]bool{}
	for _, id := range in.SplitUserIDs {
		if memberIDs[id] && !seen[id] {
			seen[id] = true
			splits = append(splits, id)
		}
	}
	if len(splits) == 0 {
		splits = []int64{paidBy}
	}

	if in.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, placeID, *in.CategoryID); err != nil {
			return nil, err
		}
	}

	expense := &core.Expense{
		PlaceID:      placeID,
		Amount:       in.Amount,
		Description:  in.Description,
		Date:         in.Date,
		PaidBy:       paidBy,
		AddedBy:      actorID,
		CategoryID:   in.CategoryID,
		SplitUserIDs: splits,
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) requireMember(ctx context.Context, placeID, actorID int64) error {
	if _, err := s.store.GetPlace(ctx, placeID); err != nil {
		return err
	}
	ok, err := s.store.IsMember(ctx, placeID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *ExpenseService) invalidate(placeID int64) {
	if s.summaries != nil {
		s.summaries.Invalidate(placeID)
	}
}

func (s *ExpenseService) publish(ctx context.Context, ev *event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		// The write already succeeded; notifications are best effort.
		slog.ErrorContext(ctx, "Failed to publish event", "type", ev.Type, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
}
