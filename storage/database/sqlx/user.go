package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
)

type userRepository struct {
	db     *sqlx.DB
	tables *database.NameResolver
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB, tables *database.NameResolver) *userRepository {
	return &userRepository{db: db, tables: tables}
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Groups       pq.StringArray `db:"groups"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (repo userRepository) table() string {
	return fmt.Sprintf("%q", repo.tables.Resolve("user"))
}

func (repo userRepository) row(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		Groups:       usr.Groups,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (repo userRepository) unrow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		IsActive:     row.IsActive,
		Groups:       row.Groups,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo userRepository) unrowSlice(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unrow(row))
	}
	return users
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE email = $1", repo.table())
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id != ALL($2)"
		args = append(args, pq.Array(ids))
	}
	query += ")"

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return classify(err, user.ErrNotFound, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.row(usr)

	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, email, is_active, groups, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :is_active, :groups, :password_hash, :created_at, :updated_at, :last_login)`,
		repo.table())
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, classify(err, user.ErrNotFound, "inserting user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", repo.table())
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		return user.User{}, classify(err, user.ErrNotFound, "finding user by ID")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE email = $1", repo.table())
	if err := repo.db.GetContext(ctx, &row, query, email); err != nil {
		return user.User{}, classify(err, user.ErrNotFound, "finding user by email")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) GetUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	var rows []userRow
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ANY($1)", repo.table())
	if err := repo.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, classify(err, user.ErrNotFound, "finding users by ID")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	query := fmt.Sprintf("SELECT * FROM %s", repo.table())
	var clauses []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
		}
		if len(filter.Groups) > 0 {
			clauses = append(clauses, fmt.Sprintf("groups && %s", arg(pq.Array(filter.Groups))))
		}
		if filter.IsActive != nil {
			clauses = append(clauses, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err, user.ErrNotFound, "querying users")
	}
	return repo.unrowSlice(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET
			name       = COALESCE(NULLIF($2, ''), name),
			email      = COALESCE(NULLIF($3, ''), email),
			groups     = COALESCE($4, groups),
			is_active  = COALESCE($5, is_active),
			updated_at = COALESCE($6, updated_at),
			last_login = COALESCE($7, last_login)
		WHERE id = $1
		RETURNING *`,
		repo.table())

	var groups interface{}
	if usr.Groups != nil {
		groups = pq.Array(usr.Groups)
	}
	var updatedAt, lastLogin interface{}
	if !usr.UpdatedAt.IsZero() {
		updatedAt = usr.UpdatedAt.UTC()
	}
	if !usr.LastLogin.IsZero() {
		lastLogin = usr.LastLogin.UTC()
	}

	var row userRow
	err := repo.db.GetContext(ctx, &row, query, usr.ID, usr.Name, usr.Email, groups, isActive, updatedAt, lastLogin)
	if err != nil {
		return user.User{}, classify(err, user.ErrNotFound, "updating user")
	}
	return repo.unrow(row), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", repo.table())
	if _, err := repo.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return classify(err, user.ErrNotFound, "deleting users")
	}
	return nil
}
