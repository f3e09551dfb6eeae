package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/medtrack/medtrack-go/internal/crypto"
	"github.com/medtrack/medtrack-go/internal/model"
	"github.com/medtrack/medtrack-go/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrEmailRequired      = errors.New("users must have an email address")
	ErrPasswordRequired   = errors.New("password is required")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// UserRepository is the persistence contract UserService depends on.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// UserOption adjusts a user before it is stored.
type UserOption func(*model.User)

func WithStaff() UserOption {
	return func(u *model.User) { u.IsStaff = true }
}

func WithSuperuser() UserOption {
	return func(u *model.User) { u.IsSuperuser = true }
}

func WithActive(active bool) UserOption {
	return func(u *model.User) { u.IsActive = active }
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserService handles account and authentication business logic.
type UserService struct {
	repo      UserRepository
	jwtSecret string
	jwtExpiry time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository, secret string, expiry time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		jwtSecret: secret,
		jwtExpiry: expiry,
	}
}

// CreateUser stores a new active user with a hashed password.
func (s *UserService) CreateUser(ctx context.Context, email, password string, opts ...UserOption) (*model.User, error) {
	email = NormalizeEmail(email)

	ve := &ValidationError{}
	if email == "" {
		ve.Add("email", ErrEmailRequired)
	}
	if password == "" {
		ve.Add("password", ErrPasswordRequired)
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			ve.Add("email", ErrEmailTaken)
			return nil, ve
		}
		return nil, err
	}

	return user, nil
}

// CreateSuperuser stores a new user with staff and superuser flags set.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*model.User, error) {
	return s.CreateUser(ctx, email, password, WithStaff(), WithSuperuser())
}

// Register validates a public sign-up request and creates the account.
func (s *UserService) Register(ctx context.Context, req model.CreateUserRequest) (model.UserResponse, error) {
	req.Email = strings.TrimSpace(req.Email)

	ve := &ValidationError{}
	checkStruct(ve, req)
	if err := ve.OrNil(); err != nil {
		return model.UserResponse{}, err
	}

	user, err := s.CreateUser(ctx, req.Email, req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	return model.NewUserResponse(user), nil
}

// Login verifies the credentials of an active user and returns a bearer token.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	ve := &ValidationError{}
	checkStruct(ve, req)
	if err := ve.OrNil(); err != nil {
		return model.TokenResponse{}, err
	}

	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}

	if !user.IsActive || !user.CheckPassword(req.Password) {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, err := crypto.GenerateToken(user.ID, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{Token: token}, nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *UserService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}

	return model.NewUserResponse(user), nil
}

// IsActive reports whether the user exists and may authenticate.
func (s *UserService) IsActive(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsActive, nil
}
