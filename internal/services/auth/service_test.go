package auth

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bankcards/internal/apperrors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
	"bankcards/internal/utils"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) GetByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != "" && u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepo) Delete(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(search string, limit, offset int) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if search == "" || strings.Contains(u.Username, search) {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) IncrementTokenVersion(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TokenVersion++
	return nil
}

func seedUser(t *testing.T, repo *fakeUserRepo, username, email, password string, enabled bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		Enabled:      enabled,
		TokenVersion: 1,
	}
	require.NoError(t, repo.Create(u))
	return u
}

func TestLogin(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "ivan", "ivan@example.com", "hunter22xyz", true)
	svc := NewService(repo)

	t.Run("by username", func(t *testing.T) {
		account, access, refresh, err := svc.Login("ivan", "hunter22xyz")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.NotNil(t, account.LastLoginAt)

		_, claims, err := utils.ParseToken(access)
		require.NoError(t, err)
		assert.Equal(t, account.ID, claims.UserID)
		assert.Equal(t, "ivan", claims.Username)
		assert.Equal(t, account.TokenVersion, claims.TokenVersion)
	})

	t.Run("by email", func(t *testing.T) {
		_, access, _, err := svc.Login("ivan@example.com", "hunter22xyz")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login("ivan", "wrong")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, _, _, err := svc.Login("nobody", "hunter22xyz")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestLoginDisabledAccount(t *testing.T) {
	repo := newFakeUserRepo()
	seedUser(t, repo, "off", "", "hunter22xyz", false)
	svc := NewService(repo)

	_, _, _, err := svc.Login("off", "hunter22xyz")
	require.Error(t, err)
	assert.True(t, apperrors.IsBusiness(err))
}

func TestRefreshTokens(t *testing.T) {
	repo := newFakeUserRepo()
	account := seedUser(t, repo, "ivan", "", "hunter22xyz", true)
	svc := NewService(repo)

	_, _, refresh, err := svc.Login("ivan", "hunter22xyz")
	require.NoError(t, err)

	access2, refresh2, err := svc.RefreshTokens(refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, access2)
	assert.NotEmpty(t, refresh2)

	t.Run("revoked after logout", func(t *testing.T) {
		require.NoError(t, svc.Logout(account.ID))

		_, _, err := svc.RefreshTokens(refresh2)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := svc.RefreshTokens("not.a.token")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestLogoutBumpsTokenVersion(t *testing.T) {
	repo := newFakeUserRepo()
	account := seedUser(t, repo, "ivan", "", "hunter22xyz", true)
	svc := NewService(repo)

	require.NoError(t, svc.Logout(account.ID))

	version, err := svc.GetUserTokenVersion(account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.TokenVersion+1, version)

	err = svc.Logout(uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestChangePassword(t *testing.T) {
	repo := newFakeUserRepo()
	account := seedUser(t, repo, "ivan", "", "hunter22xyz", true)
	svc := NewService(repo)

	t.Run("wrong old password", func(t *testing.T) {
		err := svc.ChangePassword(account.ID, "nope", "newpassword1")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("new password too short", func(t *testing.T) {
		err := svc.ChangePassword(account.ID, "hunter22xyz", "short")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("success invalidates old sessions", func(t *testing.T) {
		require.NoError(t, svc.ChangePassword(account.ID, "hunter22xyz", "newpassword1"))

		updated, err := repo.GetByID(account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.TokenVersion+1, updated.TokenVersion)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpassword1")))

		_, _, _, err = svc.Login("ivan", "newpassword1")
		assert.NoError(t, err)
	})
}
