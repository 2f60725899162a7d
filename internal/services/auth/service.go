// Package auth issues and validates the JWT pairs used by the API.
// Tokens carry a version; bumping the version on logout or password
// change invalidates everything issued before.
package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bankcards/internal/apperrors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/utils"
)

type Service interface {
	// Login authenticates by username or email and returns the user with
	// a fresh access/refresh token pair.
	Login(identifier, password string) (*models.User, string, string, error)
	RefreshTokens(refreshToken string) (string, string, error)
	Logout(userID uuid.UUID) error
	ChangePassword(userID uuid.UUID, oldPassword, newPassword string) error

	GetUserByID(userID uuid.UUID) (*models.User, error)
	GetUserTokenVersion(userID uuid.UUID) (int, error)
}

type service struct {
	userRepo repositories.UserRepository
}

func NewService(userRepo repositories.UserRepository) Service {
	if userRepo == nil {
		panic("user repository is required")
	}
	return &service{userRepo: userRepo}
}

func (s *service) Login(identifier, password string) (*models.User, string, string, error) {
	user, err := s.getUserByIdentifier(identifier)
	if err != nil {
		return nil, "", "", apperrors.Validation("invalid credentials")
	}
	if !user.Enabled {
		return nil, "", "", apperrors.Business("user account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", "", apperrors.Validation("invalid credentials")
	}

	accessToken, refreshToken, err := s.issueTokens(user)
	if err != nil {
		return nil, "", "", apperrors.Internal(err)
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(user); err != nil {
		return nil, "", "", apperrors.Internal(err)
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(refreshToken string) (string, string, error) {
	_, claims, err := utils.ParseToken(refreshToken)
	if err != nil {
		return "", "", apperrors.Validation("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", "", apperrors.Validation("invalid refresh token")
	}
	if user.TokenVersion != claims.TokenVersion {
		return "", "", apperrors.Validation("session expired")
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		return "", "", apperrors.Internal(err)
	}
	return access, refresh, nil
}

func (s *service) Logout(userID uuid.UUID) error {
	if err := s.userRepo.IncrementTokenVersion(userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) ChangePassword(userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.Validation("invalid old password")
	}
	if len(newPassword) < 8 {
		return apperrors.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(err)
	}
	user.PasswordHash = string(hash)
	user.TokenVersion++

	if err := s.userRepo.Update(user); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) GetUserByID(userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) GetUserTokenVersion(userID uuid.UUID) (int, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

func (s *service) issueTokens(user *models.User) (string, string, error) {
	return utils.GenerateTokens(&models.UserClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		Permissions:  models.GetDefaultPermissions(user.Role),
	})
}

func (s *service) getUserByIdentifier(identifier string) (*models.User, error) {
	if user, err := s.userRepo.GetByUsername(identifier); err == nil {
		return user, nil
	}
	return s.userRepo.GetByEmail(identifier)
}
