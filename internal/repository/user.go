package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/medtrack/medtrack-go/internal/model"
)

const userColumns = `id, email, password_hash, is_active, is_staff, is_superuser, created_at, updated_at`

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, password_hash, is_active, is_staff, is_superuser) VALUES (?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		user.Email, user.PasswordHash, user.IsActive, user.IsStaff, user.IsSuperuser,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	*user = *created
	return nil
}

// GetByEmail retrieves a user by their (already normalized) email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.IsStaff, &user.IsSuperuser,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user, nil
}
