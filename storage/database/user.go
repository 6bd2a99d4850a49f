package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/auth"
	"github.com/darasa-lms/darasa/core/user"
)

type userRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Email          string         `db:"email"`
	EmailConfirmed bool           `db:"email_confirmed"`
	Roles          pq.StringArray `db:"roles"`
	PasswordHash   []byte         `db:"password_hash"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	LastLogin      *time.Time     `db:"last_login"`
}

func (r userRow) toUser() user.User {
	roles := make([]auth.Role, 0, len(r.Roles))
	for _, role := range r.Roles {
		roles = append(roles, auth.Role(role))
	}
	usr := user.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		EmailConfirmed: r.EmailConfirmed,
		Roles:          roles,
		PasswordHash:   r.PasswordHash,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.LastLogin != nil {
		usr.LastLogin = *r.LastLogin
	}
	return usr
}

func rolesArray(roles []auth.Role) pq.StringArray {
	arr := make(pq.StringArray, 0, len(roles))
	for _, role := range roles {
		arr = append(arr, string(role))
	}
	return arr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	exclIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	var exists bool
	err := repo.db.Get(
		&exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id != ALL($2))`,
		email, pq.Array(exclIDs),
	)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}

	_, err := repo.db.Exec(
		`INSERT INTO users (id, name, email, email_confirmed, roles, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usr.ID, usr.Name, usr.Email, usr.EmailConfirmed, rolesArray(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT * FROM users ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by id")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT * FROM users WHERE LOWER(email) = LOWER($1)`, email); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user by email")
	}
	return row.toUser(), nil
}

func (repo *userRepository) QueryUsersByRole(role auth.Role) ([]user.User, error) {
	var rows []userRow
	err := repo.db.Select(&rows, `SELECT * FROM users WHERE $1 = ANY(roles) ORDER BY name`, string(role))
	if err != nil {
		return nil, errors.Wrap(err, "querying users by role")
	}
	return toUsers(rows), nil
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	// only persist set fields
	row, err := repo.db.Queryx(
		`UPDATE users SET
			name          = COALESCE(NULLIF($2, ''), name),
			email         = COALESCE(NULLIF($3, ''), email),
			roles         = CASE WHEN $4::text[] IS NULL THEN roles ELSE $4 END,
			password_hash = COALESCE($5, password_hash),
			updated_at    = CASE WHEN $6::timestamptz IS NULL THEN updated_at ELSE $6 END,
			last_login    = COALESCE($7, last_login)
		 WHERE id = $1
		 RETURNING *`,
		usr.ID, usr.Name, usr.Email, nilIfEmptyRoles(usr.Roles), nilIfEmptyBytes(usr.PasswordHash),
		nilIfZeroTime(usr.UpdatedAt), nilIfZeroTime(usr.LastLogin),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	defer row.Close()

	if !row.Next() {
		return user.User{}, user.ErrNotFound
	}
	var updated userRow
	if err = row.StructScan(&updated); err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return updated.toUser(), nil
}

func (repo *userRepository) SetEmailConfirmed(id string) (user.User, error) {
	res, err := repo.db.Exec(`UPDATE users SET email_confirmed = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return user.User{}, errors.Wrap(err, "confirming email")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(id)
}

func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	_, err := repo.db.Exec(`DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users
}

func nilIfEmptyRoles(roles []auth.Role) interface{} {
	if roles == nil {
		return nil
	}
	return rolesArray(roles)
}

func nilIfEmptyBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nilIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
