// Package user manages user accounts: registration, lookups used by the
// card domain (an issued card needs an enabled owner), and the
// administrative CRUD surface.
package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bankcards/internal/apperrors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
)

// RegisterRequest is the self-service registration payload.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
	FullName string
}

// CreateUserRequest is the administrative user creation payload.
type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	FullName string
	Role     string
	Enabled  bool
}

// UpdateUserRequest is the administrative user update payload. A blank
// password leaves the current hash untouched.
type UpdateUserRequest struct {
	Email    string
	Password string
	FullName string
	Role     string
	Enabled  bool
}

type Service interface {
	Register(req RegisterRequest) (*models.User, error)
	GetByID(id uuid.UUID) (*models.User, error)
	// RequireActiveUser returns the user or fails with NotFound when the
	// id is unknown and a business-rule violation when the account is
	// disabled.
	RequireActiveUser(id uuid.UUID) (*models.User, error)

	CreateUser(req CreateUserRequest) (*models.User, error)
	UpdateUser(id uuid.UUID, req UpdateUserRequest) (*models.User, error)
	DeleteUser(id uuid.UUID) error
	ListUsers(search string, limit, offset int) ([]models.User, int64, error)
}

type service struct {
	repo repositories.UserRepository
}

func NewService(repo repositories.UserRepository) Service {
	if repo == nil {
		panic("user repository is required")
	}
	return &service{repo: repo}
}

func (s *service) Register(req RegisterRequest) (*models.User, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}
	return s.create(CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     models.RoleUser,
		Enabled:  true,
	})
}

func (s *service) GetByID(id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) RequireActiveUser(id uuid.UUID) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, apperrors.Business("user account is disabled")
	}
	return user, nil
}

func (s *service) CreateUser(req CreateUserRequest) (*models.User, error) {
	if err := validateCredentials(req.Username, req.Password); err != nil {
		return nil, err
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleUser {
		return nil, apperrors.Validationf("unknown role %q", req.Role)
	}
	return s.create(req)
}

func (s *service) create(req CreateUserRequest) (*models.User, error) {
	if _, err := s.repo.GetByUsername(req.Username); err == nil {
		return nil, apperrors.Business("username already in use")
	}
	if req.Email != "" {
		if _, err := s.repo.GetByEmail(req.Email); err == nil {
			return nil, apperrors.Business("email already in use")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Enabled:      req.Enabled,
		TokenVersion: 1,
	}
	if err := s.repo.Create(user); err != nil {
		// The pre-checks above race against concurrent registrations; the
		// unique indexes are the authority.
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return nil, apperrors.Business("username or email already in use")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) UpdateUser(id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Email != "" && req.Email != user.Email {
		if existing, err := s.repo.GetByEmail(req.Email); err == nil && existing.ID != user.ID {
			return nil, apperrors.Business("email already in use")
		}
		user.Email = req.Email
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Role != "" {
		if req.Role != models.RoleAdmin && req.Role != models.RoleUser {
			return nil, apperrors.Validationf("unknown role %q", req.Role)
		}
		user.Role = req.Role
	}
	user.Enabled = req.Enabled

	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, apperrors.Validation("password must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		user.PasswordHash = string(hash)
		user.TokenVersion++
	}

	if err := s.repo.Update(user); err != nil {
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) DeleteUser(id uuid.UUID) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) ListUsers(search string, limit, offset int) ([]models.User, int64, error) {
	users, total, err := s.repo.List(strings.TrimSpace(search), limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return users, total, nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return apperrors.Validation("username is required")
	}
	if len(password) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}
	return nil
}
