package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
)

const userColumns = `id, email, display_name, phone, password_hash, is_active, created_at, updated_at, last_login`

type userRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	DisplayName  string      `db:"display_name"`
	Phone        null.String `db:"phone"`
	PasswordHash []byte      `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		DisplayName:  usr.DisplayName,
		Phone:        null.NewString(usr.Phone, usr.Phone != ""),
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		Phone:        r.Phone.String,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :email, :display_name, :phone, :password_hash, :is_active, :created_at, :updated_at, :last_login)`

	if _, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr)); err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		if isNotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, `id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (repo *userRepository) QueryUsersByID(ctx context.Context, ids ...string) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[]) ORDER BY display_name`
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(ids)); err != nil {
		if pqCode(err) == invalidTextRepresentation {
			return users, nil
		}
		return nil, errors.Wrap(err, "selecting users")
	}
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	const q = `
		UPDATE users SET
			email = :email,
			display_name = :display_name,
			phone = :phone,
			password_hash = :password_hash,
			is_active = :is_active,
			updated_at = :updated_at,
			last_login = :last_login
		WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		if pqCode(err) == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}
