// Package postgres provides a PostgreSQL-backed implementation of
// storage.Store using the pgx stdlib driver with embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"equilo/internal/core"
	"equilo/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New connects to the database at dsn and runs pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// isUniqueViolation detects SQLSTATE 23505 (unique_violation).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *core.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt.Unix(),
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, storage.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
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
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1", id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1", username))
}

// Places and membership

func (s *Store) CreatePlace(ctx context.Context, place *core.Place) error {
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO places (name, created_by, created_at) VALUES ($1, $2, $3) RETURNING id",
		place.Name, place.CreatedBy, place.CreatedAt.Unix(),
	).Scan(&place.ID)
	if err != nil {
		return fmt.Errorf("insert place: %w", err)
	}
	return nil
}

func (s *Store) GetPlace(ctx context.Context, id int64) (*core.Place, error) {
	var p core.Place
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_by, created_at FROM places WHERE id = $1", id,
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
		 WHERE m.user_id = $1
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
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO place_members (place_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		placeID, userID, role, joined.Unix(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("membership: %w", storage.ErrConflict)
		}
		return nil, fmt.Errorf("insert member: %w", err)
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
		 WHERE m.place_id = $1
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
		"SELECT 1 FROM place_members WHERE place_id = $1 AND user_id = $2",
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
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO categories (place_id, name) VALUES ($1, $2) RETURNING id",
		category.PlaceID, category.Name,
	).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category %q: %w", category.Name, storage.ErrConflict)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, placeID, id int64) (*core.Category, error) {
	var c core.Category
	err := s.db.QueryRowContext(ctx,
		"SELECT id, place_id, name FROM categories WHERE place_id = $1 AND id = $2",
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
		"SELECT id, place_id, name FROM categories WHERE place_id = $1 AND name = $2",
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
		"SELECT id, place_id, name FROM categories WHERE place_id = $1 ORDER BY name", placeID)
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
		"UPDATE categories SET name = $1 WHERE place_id = $2 AND id = $3",
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
		"DELETE FROM categories WHERE place_id = $1 AND id = $2", placeID, id)
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
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO invites (place_id, email, token, invited_by, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		invite.PlaceID, invite.Email, invite.Token, invite.InvitedBy, invite.Status, invite.CreatedAt.Unix(),
	).Scan(&invite.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invite for %q: %w", invite.Email, storage.ErrConflict)
		}
		return fmt.Errorf("insert invite: %w", err)
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
		 FROM invites WHERE place_id = $1 AND id = $2`, placeID, id))
}

func (s *Store) GetInviteByToken(ctx context.Context, token string) (*core.Invite, error) {
	return s.scanInvite(s.db.QueryRowContext(ctx,
		`SELECT id, place_id, email, token, invited_by, status, created_at
		 FROM invites WHERE token = $1`, token))
}

func (s *Store) ListInvites(ctx context.Context, placeID int64) ([]core.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_id, email, token, invited_by, status, created_at
		 FROM invites WHERE place_id = $1 ORDER BY created_at DESC, id DESC`, placeID)
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
		"UPDATE invites SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("update invite status: %w", err)
	}
	return requireRow(res, "invite")
}

func (s *Store) DeleteInvite(ctx context.Context, placeID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM invites WHERE place_id = $1 AND id = $2", placeID, id)
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

	err = tx.QueryRowContext(ctx,
		`INSERT INTO expenses (place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		expense.PlaceID, expense.Amount.Cents, expense.Description, expense.Date.Time,
		expense.PaidBy, expense.AddedBy, expense.CategoryID, expense.CreatedAt.Unix(),
	).Scan(&expense.ID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for _, userID := range expense.SplitUserIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id) VALUES ($1, $2)",
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
	var date time.Time
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = $1 AND id = $2`, placeID, id,
	).Scan(&e.ID, &e.PlaceID, &e.Amount.Cents, &e.Description, &date, &e.PaidBy, &e.AddedBy, &e.CategoryID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Date = core.DateOf(date)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := s.loadSplits(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, expense *core.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = $1, description = $2, date = $3, paid_by = $4, category_id = $5
		 WHERE place_id = $6 AND id = $7`,
		expense.Amount.Cents, expense.Description, expense.Date.Time,
		expense.PaidBy, expense.CategoryID, expense.PlaceID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if err := requireRow(res, "expense"); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM expense_splits WHERE expense_id = $1", expense.ID); err != nil {
		return fmt.Errorf("clear splits: %w", err)
	}
	for _, userID := range expense.SplitUserIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, user_id) VALUES ($1, $2)",
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
		"DELETE FROM expenses WHERE place_id = $1 AND id = $2", placeID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, "expense")
}

func (s *Store) ListExpenses(ctx context.Context, placeID int64) ([]core.Expense, error) {
	return s.queryExpenses(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = $1
		 ORDER BY date DESC, created_at DESC, id DESC`, placeID)
}

func (s *Store) ExpensesInRange(ctx context.Context, placeID int64, r core.PeriodRange) ([]core.Expense, error) {
	return s.queryExpenses(ctx,
		`SELECT id, place_id, amount_cents, description, date, paid_by, added_by, category_id, created_at
		 FROM expenses WHERE place_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date, id`, placeID, r.From.Time, r.To.Time)
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
		var date time.Time
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.PlaceID, &e.Amount.Cents, &e.Description, &date,
			&e.PaidBy, &e.AddedBy, &e.CategoryID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = core.DateOf(date)
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
		"SELECT user_id FROM expense_splits WHERE expense_id = $1 ORDER BY user_id", e.ID)
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
