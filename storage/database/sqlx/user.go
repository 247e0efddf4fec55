package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

const userColumns = "id, email, phone, first_name, last_name, is_active, is_staff, is_superuser, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	Phone        null.String `db:"phone"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	IsActive     bool        `db:"is_active"`
	IsStaff      bool        `db:"is_staff"`
	IsSuperuser  bool        `db:"is_superuser"`
	PasswordHash string      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		Phone:        null.NewString(usr.Phone, usr.Phone != ""),
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		IsActive:     usr.IsActive,
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:           row.ID,
		Email:        row.Email,
		Phone:        row.Phone.String,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		IsActive:     row.IsActive,
		IsStaff:      row.IsStaff,
		IsSuperuser:  row.IsSuperuser,
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{repo: newRepo(db)}
}

func (r *userRepository) CheckEmailUniqueness(ctx context.Context, email, phone string, excludedUsers ...user.User) error {
	conds := []string{"email = ?"}
	args := []interface{}{email}
	if phone != "" {
		conds = append(conds, "phone = ?")
		args = append(args, phone)
	}
	query := "SELECT " + userColumns + " FROM users WHERE (" + strings.Join(conds, " OR ") + ")"
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}

	var rows []userRow
	if err := r.selectIn(ctx, &rows, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Email == email {
			return user.ErrEmailExists
		}
	}
	if len(rows) > 0 {
		return user.ErrPhoneExists
	}
	return nil
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	err := r.namedExec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (:id, :email, :phone, :first_name, :last_name, :is_active, :is_staff, :is_superuser,
		        :password_hash, :created_at, :updated_at, :last_login)`,
		toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewValidationError(user.ErrEmailExists,
				core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (r *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter != nil {
		// users with FirstName, LastName or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			conds = append(conds, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)")
			args = append(args, val, val, val)
		}
		if filter.IsActive != nil {
			conds = append(conds, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "email ASC")

	var rows []userRow
	if err := r.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (r *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE "
	var arg string
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.Email != "":
		query += "email = ?"
		arg = filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := r.get(ctx, &row, query, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (r *userRepository) GetUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	if err := r.selectIn(ctx, &rows, "SELECT "+userColumns+" FROM users WHERE id IN (?) ORDER BY email", ids); err != nil {
		return nil, errors.Wrap(err, "getting users by ID")
	}
	return toUsers(rows), nil
}

func (r *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, r.exec, `
		UPDATE users
		SET email = :email, phone = :phone, first_name = :first_name, last_name = :last_name,
		    is_active = :is_active, is_staff = :is_staff, is_superuser = :is_superuser,
		    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		toUserRow(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.NewValidationError(user.ErrEmailExists,
				core.FieldError{Field: "email", Error: user.ErrEmailExists.Error()})
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func orderBy(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return fallback
	}
	ords := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		ords = append(ords, ord.String())
	}
	return strings.Join(ords, ", ")
}
