// Package storage defines the persistence boundary for places, members,
// invites, categories and the expense ledger.
package storage

import (
	"context"
	"errors"

	"equilo/internal/core"
)

var (
	// ErrNotFound is returned for unknown place/expense/member/invite ids.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint is violated
	// (username, email, category name per place, invite per place+email).
	ErrConflict = errors.New("already exists")
)

// Store is the persistence interface. Implementations exist for SQLite and
// PostgreSQL; the service layer never depends on a concrete backend.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *core.User) error
	GetUserByID(ctx context.Context, id int64) (*core.User, error)
	GetUserByUsername(ctx context.Context, username string) (*core.User, error)

	// Places and membership
	CreatePlace(ctx context.Context, place *core.Place) error
	GetPlace(ctx context.Context, id int64) (*core.Place, error)
	ListPlacesForUser(ctx context.Context, userID int64) ([]core.Place, error)
	AddMember(ctx context.Context, placeID, userID int64, role string) (*core.Member, error)
	ListMembers(ctx context.Context, placeID int64) ([]core.Member, error)
	IsMember(ctx context.Context, placeID, userID int64) (bool, error)

	// Categories
	CreateCategory(ctx context.Context, category *core.Category) error
	GetCategory(ctx context.Context, placeID, id int64) (*core.Category, error)
	GetCategoryByName(ctx context.Context, placeID int64, name string) (*core.Category, error)
	ListCategories(ctx context.Context, placeID int64) ([]core.Category, error)
	UpdateCategory(ctx context.Context, category *core.Category) error
	DeleteCategory(ctx context.Context, placeID, id int64) error

	// Invites
	CreateInvite(ctx context.Context, invite *core.Invite) error
	GetInvite(ctx context.Context, placeID, id int64) (*core.Invite, error)
	GetInviteByToken(ctx context.Context, token string) (*core.Invite, error)
	ListInvites(ctx context.Context, placeID int64) ([]core.Invite, error)
	UpdateInviteStatus(ctx context.Context, id int64, status string) error
	DeleteInvite(ctx context.Context, placeID, id int64) error

	// Expense ledger. ExpensesInRange filters by the settlement date field,
	// bounds inclusive; ListExpenses orders by date then created_at,
	// newest first, for display.
	CreateExpense(ctx context.Context, expense *core.Expense) error
	GetExpense(ctx context.Context, placeID, id int64) (*core.Expense, error)
	UpdateExpense(ctx context.Context, expense *core.Expense) error
	DeleteExpense(ctx context.Context, placeID, id int64) error
	ListExpenses(ctx context.Context, placeID int64) ([]core.Expense, error)
	ExpensesInRange(ctx context.Context, placeID int64, r core.PeriodRange) ([]core.Expense, error)

	Close() error
}
