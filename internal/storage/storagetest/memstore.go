// Package storagetest provides an in-memory storage.Store for tests.
// It enforces the same uniqueness rules as the SQL backends so service
// and handler tests exercise realistic conflict paths.
package storagetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"equilo/internal/core"
	"equilo/internal/storage"
)

type MemStore struct {
	mu sync.Mutex

	nextID   int64
	users    map[int64]*core.User
	places   map[int64]*core.Place
	members  map[int64]*core.Member
	cats     map[int64]*core.Category
	invites  map[int64]*core.Invite
	expenses map[int64]*core.Expense
}

var _ storage.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{
		users:    map[int64]*core.User{},
		places:   map[int64]*core.Place{},
		members:  map[int64]*core.Member{},
		cats:     map[int64]*core.Category{},
		invites:  map[int64]*core.Invite{},
		expenses: map[int64]*core.Expense{},
	}
}

func (s *MemStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemStore) Close() error { return nil }

// Users

func (s *MemStore) CreateUser(ctx context.Context, user *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %q: %w", user.Username, storage.ErrConflict)
		}
	}
	user.ID = s.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemStore) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Places and membership

func (s *MemStore) CreatePlace(ctx context.Context, place *core.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	place.ID = s.id()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now().UTC()
	}
	cp := *place
	s.places[place.ID] = &cp
	return nil
}

func (s *MemStore) GetPlace(ctx context.Context, id int64) (*core.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.places[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) ListPlacesForUser(ctx context.Context, userID int64) ([]core.Place, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Place
	for _, m := range s.members {
		if m.User.ID == userID {
			if p, ok := s.places[m.PlaceID]; ok {
				out = append(out, *p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) AddMember(ctx context.Context, placeID, userID int64, role string) (*core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.PlaceID == placeID && m.User.ID == userID {
			return nil, fmt.Errorf("membership: %w", storage.ErrConflict)
		}
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	m := &core.Member{
		ID:       s.id(),
		PlaceID:  placeID,
		User:     *u,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	s.members[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *MemStore) ListMembers(ctx context.Context, placeID int64) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Member
	for _, m := range s.members {
		if m.PlaceID == placeID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) IsMember(ctx context.Context, placeID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		if m.PlaceID == placeID && m.User.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Categories

func (s *MemStore) CreateCategory(ctx context.Context, category *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.PlaceID == category.PlaceID && c.Name == category.Name {
			return fmt.Errorf("category %q: %w", category.Name, storage.ErrConflict)
		}
	}
	category.ID = s.id()
	cp := *category
	s.cats[category.ID] = &cp
	return nil
}

func (s *MemStore) GetCategory(ctx context.Context, placeID, id int64) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.PlaceID != placeID {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemStore) GetCategoryByName(ctx context.Context, placeID int64, name string) (*core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cats {
		if c.PlaceID == placeID && c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *MemStore) ListCategories(ctx context.Context, placeID int64) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if c.PlaceID == placeID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) UpdateCategory(ctx context.Context, category *core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[category.ID]
	if !ok || c.PlaceID != category.PlaceID {
		return storage.ErrNotFound
	}
	for _, other := range s.cats {
		if other.ID != c.ID && other.PlaceID == c.PlaceID && other.Name == category.Name {
			return fmt.Errorf("category %q: %w", category.Name, storage.ErrConflict)
		}
	}
	c.Name = category.Name
	return nil
}

func (s *MemStore) DeleteCategory(ctx context.Context, placeID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[id]
	if !ok || c.PlaceID != placeID {
		return storage.ErrNotFound
	}
	delete(s.cats, id)
	// Mirrors ON DELETE SET NULL on expenses.category_id.
	for _, e := range s.expenses {
		if e.CategoryID != nil && *e.CategoryID == id {
			e.CategoryID = nil
		}
	}
	return nil
}

// Invites

func (s *MemStore) CreateInvite(ctx context.Context, invite *core.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.invites {
		if i.PlaceID == invite.PlaceID && i.Email == invite.Email {
			return fmt.Errorf("invite for %q: %w", invite.Email, storage.ErrConflict)
		}
		if i.Token == invite.Token {
			return fmt.Errorf("invite token: %w", storage.ErrConflict)
		}
	}
	invite.ID = s.id()
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	if invite.Status == "" {
		invite.Status = core.InviteStatusPending
	}
	cp := *invite
	s.invites[invite.ID] = &cp
	return nil
}

func (s *MemStore) GetInvite(ctx context.Context, placeID, id int64) (*core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invites[id]
	if !ok || i.PlaceID != placeID {
		return nil, storage.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *MemStore) GetInviteByToken(ctx context.Context, token string) (*core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.invites {
		if i.Token == token {
			cp := *i
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *MemStore) ListInvites(ctx context.Context, placeID int64) ([]core.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Invite
	for _, i := range s.invites {
		if i.PlaceID == placeID {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemStore) UpdateInviteStatus(ctx context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invites[id]
	if !ok {
		return storage.ErrNotFound
	}
	i.Status = status
	return nil
}

func (s *MemStore) DeleteInvite(ctx context.Context, placeID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.invites[id]
	if !ok || i.PlaceID != placeID {
		return storage.ErrNotFound
	}
	delete(s.invites, id)
	return nil
}

// Expenses

func (s *MemStore) CreateExpense(ctx context.Context, expense *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	expense.ID = s.id()
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	cp := *expense
	cp.SplitUserIDs = append([]int64(nil), expense.SplitUserIDs...)
	s.expenses[expense.ID] = &cp
	return nil
}

func (s *MemStore) GetExpense(ctx context.Context, placeID, id int64) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.PlaceID != placeID {
		return nil, storage.ErrNotFound
	}
	cp := *e
	cp.SplitUserIDs = append([]int64(nil), e.SplitUserIDs...)
	return &cp, nil
}

func (s *MemStore) UpdateExpense(ctx context.Context, expense *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expense.ID]
	if !ok || e.PlaceID != expense.PlaceID {
		return storage.ErrNotFound
	}
	cp := *expense
	cp.CreatedAt = e.CreatedAt
	cp.SplitUserIDs = append([]int64(nil), expense.SplitUserIDs...)
	s.expenses[expense.ID] = &cp
	return nil
}

func (s *MemStore) DeleteExpense(ctx context.Context, placeID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.PlaceID != placeID {
		return storage.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *MemStore) ListExpenses(ctx context.Context, placeID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.PlaceID == placeID {
			cp := *e
			cp.SplitUserIDs = append([]int64(nil), e.SplitUserIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStore) ExpensesInRange(ctx context.Context, placeID int64, r core.PeriodRange) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.expenses {
		if e.PlaceID == placeID && r.Contains(e.Date) {
			cp := *e
			cp.SplitUserIDs = append([]int64(nil), e.SplitUserIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
