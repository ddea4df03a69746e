// Package sqlite provides a SQLite-backed implementation of storage.Store
// using the pure Go driver (no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"equilo/internal/core"
	"equilo/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation detects UNIQUE constraint failures from the pure Go driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *core.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Email, user.PasswordHash, user.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, storage.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username))
}

// Places and membership

func (s *Store) CreatePlace(ctx context.Context, place *core.Place) error {
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO places (name, created_by, created_at) VALUES (?, ?, ?)",
		place.Name, place.CreatedBy, place.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert place: %w", err)
	}
	place.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("place id: %w", err)
	}
	return nil
}

func (s *Store) GetPlace(ctx context.Context, id int64) (*core.Place, error) {
	var p core.Place
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_by, created_at FROM places WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &p.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func (s *Store) ListPlacesForUser(ctx context.Context, userID int64) ([]core.Place, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.created_by, p.created_at
		 FROM places p
		 JOIN place_members m ON m.place_id = p.id
		 WHERE m.user_id = ?
		 ORDER BY p.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var places []core.Place
	for rows.Next() {
		var p core.Place
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		places = append(places, p)
	}
	return places, rows.Err()
}

func (s *Store) AddMember(ctx context.Context, placeID, userID int64, role string) (*core.Member, error) {
	joined := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO place_members (place_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)",
		placeID, userID, role, joined.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("membership: %w", storage.ErrConflict)
		}
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("member id: %w", err)
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &core.Member{ID: id, PlaceID: placeID, User: *user, Role: role, JoinedAt: joined}, nil
}

func (s *Store) ListMembers(ctx context.Context, placeID int64) ([]core.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.place_id, m.role, m.joined_at, u.id, u.username, u.email
		 FROM place_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.place_id = ?
		 ORDER BY m.joined_at, m.id`, placeID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []core.Member
	for rows.Next() {
		var m core.Member
		var joinedAt int64
		if err := rows.Scan(&m.ID, &m.PlaceID, &m.Role, &joinedAt, &m.User.ID, &m.User.Username, &m.User.Email); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.JoinedAt = time.Unix(joinedAt, 0).UTC()
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) IsMember(ctx context.Context, placeID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM place_members WHERE place_id = ? AND user_id = ?",
		placeID, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return true, nil
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, category *core.Category) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (place_id, name) VALUES (?, ?)",
		category.PlaceID, category.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", category.Name, storage.ErrConflict)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	category.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, placeID, id int64) (*core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx,
		"SELECT id, place_id, name FROM categories WHERE place_id = ? AND id = ?",
		placeID, id,
	).Scan(&c.ID, &c.PlaceID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, placeID int64, name string) (*core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx,
		"SELECT id, place_id, name FROM categories WHERE place_id = ? AND name = ?",
		placeID, name,
	).Scan(&c.ID, &c.PlaceID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, placeID int64) ([]core.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, place_id, name FROM categories WHERE place_id = ? ORDER BY name", placeID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.PlaceID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, category *core.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ? WHERE place_id = ? AND id = ?",
		category.Name, category.PlaceID, category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", category.Name, storage.ErrConflict)
		}
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res, "category")
}

func (s *Store) DeleteCategory(ctx context.Context, placeID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM categories WHERE place_id = ? AND id = ?", placeID, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "category")
}

// Invites

func (s *Store) CreateInvite(ctx context.Context, invite *core.Invite) error {
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now().UTC()
	}
	if invite.Status == "" {
		invite.Status = core.InviteStatusPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (place_id, email, token, invited_by, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		invite.PlaceID, invite.Email, invite.Token, invite.InvitedBy, invite.Status, invite.CreatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite for %q: %w", invite.Email, storage.ErrConflict)
		}
		return fmt.Errorf("insert invite: %w", err)
	}
	invite.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("invite id: %w", err)
	}
	return nil
}

func (s *Store) scanInvite(row *sql.Row) (*core.Invite, error) {
	var inv core.Invite
	var createdAt int64
	err := row.Scan(&inv.ID, &inv.PlaceID, &inv.Email, &inv.Token, &inv.InvitedBy, &inv.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	inv.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &inv, nil
}

func (s *Store) GetInvite(ctx context.Context, placeID, id int64) (*core.Invite, error) {
	return s.scanInvite(s.db.QueryRowContext(ctx,
		`SELECT id, place_id, email, token, invited_by, status, created_at
		 FROM invites WHERE place_id = ? AND id = ?`, placeID, id))
}

func (s *Store) GetInviteByToken(ctx context.Context, token string) (*core.Invite, error) {
	return s.scanInvite(s.db.QueryRowContext(ctx,
		`SELECT id, place_id, email, token, invited_by, status, created_at
		 FROM invites WHERE token = ?`, token))
}

func (s *Store) ListInvites(ctx context.Context, placeID int64) ([]core.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, email, token, invited_by, status, created_at
		 FROM invites WHERE place_id = ? ORDER BY created_at DESC, id DESC`, placeID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var invites []core.Invite
	for rows.Next() {
		var inv core.Invite
		var createdAt int64
		if err := rows.Scan(&inv.ID, &inv.PlaceID, &inv.Email, &inv.Token, &inv.InvitedBy, &inv.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		inv.CreatedAt = time.Unix(createdAt, 0).UTC()
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (s *Store) UpdateInviteStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invites SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update invite status: %w", err)
	}
	return requireRow(res, "invite")
}

func (s *Store) DeleteInvite(ctx context.Context, placeID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE place_id = ? AND id = ?", placeID, id)
	if err != nil {
		return fmt.Errorf("delete invite: %w", err)
	}
	return requireRow(res, "invite")
}

// Expenses

func (s *Store) CreateExpense(ctx context.Context, expense *core.Expense) error {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO expenses (place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.PlaceID, expense.Amount.Cents, expense.Description, expense.Date.String(),
		expense.PaidBy, expense.AddedBy, expense.CategoryID, expense.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	expense.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("expense id: %w", err)
	}

	for _, userID := range expense.SplitUserIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id) VALUES (?, ?)",
			expense.ID, userID,
		); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}
	return nil
}

func (s *Store) GetExpense(ctx context.Context, placeID, id int64) (*core.Expense, error) {
	var e core.Expense
	var dateStr string
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = ? AND id = ?`, placeID, id,
	).Scan(&e.ID, &e.PlaceID, &e.Amount.Cents, &e.Description, &dateStr, &e.PaidBy, &e.AddedBy, &e.CategoryID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Date, err = core.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse expense date: %w", err)
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := s.loadSplits(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateExpense rewrites the mutable fields and replaces the split set.
// ID and created_at are preserved.
func (s *Store) UpdateExpense(ctx context.Context, expense *core.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, description = ?, date = ?, paid_by = ?, category_id = ?
		 WHERE place_id = ? AND id = ?`,
		expense.Amount.Cents, expense.Description, expense.Date.String(),
		expense.PaidBy, expense.CategoryID, expense.PlaceID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := requireRow(res, "expense"); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM expense_splits WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	for _, userID := range expense.SplitUserIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id) VALUES (?, ?)",
			expense.ID, userID,
		); err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense update: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, placeID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE place_id = ? AND id = ?", placeID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, "expense")
}

func (s *Store) ListExpenses(ctx context.Context, placeID int64) ([]core.Expense, error) {
	return s.queryExpenses(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = ?
		 ORDER BY date DESC, created_at DESC, id DESC`, placeID)
}

func (s *Store) ExpensesInRange(ctx context.Context, placeID int64, r core.PeriodRange) ([]core.Expense, error) {
	// Dates are stored as YYYY-MM-DD text, so BETWEEN compares correctly.
	return s.queryExpenses(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date, id`, placeID, r.From.String(), r.To.String())
}

func (s *Store) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var dateStr string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.PlaceID, &e.Amount.Cents, &e.Description, &dateStr,
			&e.PaidBy, &e.AddedBy, &e.CategoryID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date, err = core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range expenses {
		if err := s.loadSplits(ctx, &expenses[i]); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (s *Store) loadSplits(ctx context.Context, e *core.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM expense_splits WHERE expense_id = ? ORDER BY user_id", e.ID)
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	defer rows.Close()

	e.SplitUserIDs = e.SplitUserIDs[:0]
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("scan split: %w", err)
		}
		e.SplitUserIDs = append(e.SplitUserIDs, userID)
	}
	return rows.Err()
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}
