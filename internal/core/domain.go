package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleOwner  = "owner"
	RoleMember = "member"

	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

// DefaultCategories are seeded into every new place.
var DefaultCategories = []string{"Rent", "Utilities", "Groceries", "Internet", "Other"}

var (
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptySplits      = errors.New("expense must be split among at least one member")
	ErrInvalidEmail     = errors.New("invalid email address")
)

type (
	// User is a registered account.
	User struct {
		ID           int64     `json:"id"`
		Username     string    `json:"username"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"-"`
	}

	// Place is a shared household with members, categories and expenses.
	Place struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedBy int64     `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Member links a user to a place. A user joins a place at most once.
	Member struct {
		ID       int64     `json:"id"`
		PlaceID  int64     `json:"-"`
		User     User      `json:"user"`
		Role     string    `json:"role"`
		JoinedAt time.Time `json:"joined_at"`
	}

	// Category is a name-only expense tag, unique per place.
	Category struct {
		ID      int64  `json:"id"`
		PlaceID int64  `json:"-"`
		Name    string `json:"name"`
	}

	// Invite is a pending email invitation to join a place.
	Invite struct {
		ID        int64     `json:"id"`
		PlaceID   int64     `json:"place"`
		Email     string    `json:"email"`
		Token     string    `json:"token"`
		InvitedBy int64     `json:"invited_by"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}

	// Expense is a single cost paid by one member and shared equally among
	// SplitUserIDs. Date drives settlement; CreatedAt drives display grouping.
	Expense struct {
		ID           int64     `json:"id"`
		PlaceID      int64     `json:"place"`
		Amount       Money     `json:"amount"`
		Description  string    `json:"description"`
		Date         Date      `json:"date"`
		PaidBy       int64     `json:"paid_by"`
		AddedBy      int64     `json:"added_by"`
		CategoryID   *int64    `json:"category,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
		SplitUserIDs []int64   `json:"split_user_ids"`
	}
)

func (p Place) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 255 {
		return errors.New("name too long (max 255 characters)")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}

func (i Invite) Validate() error {
	email := strings.TrimSpace(i.Email)
	if email == "" || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 255 {
		return errors.New("description too long (max 255 characters)")
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.SplitUserIDs) == 0 {
		return ErrEmptySplits
	}
	return nil
}
