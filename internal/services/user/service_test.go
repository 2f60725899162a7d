package user

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bankcards/internal/apperrors"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) GetByUsername(username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email != "" && u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUserRepo) Update(user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrUserNotFound
	}
	u := *user
	f.users[user.ID] = &u
	return nil
}

func (f *fakeUserRepo) Delete(id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) List(search string, limit, offset int) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.users {
		if search == "" || strings.Contains(u.Username, search) || strings.Contains(u.FullName, search) {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) IncrementTokenVersion(id uuid.UUID) error {
	u, ok := f.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.TokenVersion++
	return nil
}

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	created, err := svc.Register(RegisterRequest{
		Username: "ivan",
		Email:    "ivan@example.com",
		Password: "hunter22xyz",
		FullName: "Ivan Petrov",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.True(t, created.Enabled)
	assert.Equal(t, 1, created.TokenVersion)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter22xyz")))
	assert.NotEqual(t, "hunter22xyz", created.PasswordHash)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.Register(RegisterRequest{Username: "  ", Password: "hunter22xyz"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Register(RegisterRequest{Username: "ivan", Password: "short"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRegisterDuplicates(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	_, err := svc.Register(RegisterRequest{Username: "ivan", Email: "ivan@example.com", Password: "hunter22xyz"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterRequest{Username: "ivan", Email: "other@example.com", Password: "hunter22xyz"})
	assert.True(t, apperrors.IsBusiness(err), "duplicate username")

	_, err = svc.Register(RegisterRequest{Username: "ivan2", Email: "ivan@example.com", Password: "hunter22xyz"})
	assert.True(t, apperrors.IsBusiness(err), "duplicate email")
}

// racingUserRepo simulates a concurrent registration that slips between
// the service's pre-checks and the insert: lookups see nothing, but the
// unique index fires on Create.
type racingUserRepo struct {
	*fakeUserRepo
}

func (r *racingUserRepo) GetByUsername(username string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *racingUserRepo) GetByEmail(email string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (r *racingUserRepo) Create(user *models.User) error {
	return repositories.ErrDuplicateUser
}

func TestRegisterConcurrentDuplicateIsBusinessError(t *testing.T) {
	svc := NewService(&racingUserRepo{fakeUserRepo: newFakeUserRepo()})

	_, err := svc.Register(RegisterRequest{Username: "ivan", Password: "hunter22xyz"})
	require.Error(t, err)
	assert.True(t, apperrors.IsBusiness(err))
	assert.Contains(t, err.Error(), "already in use")
}

func TestRequireActiveUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	enabled, err := svc.Register(RegisterRequest{Username: "on", Password: "hunter22xyz"})
	require.NoError(t, err)

	got, err := svc.RequireActiveUser(enabled.ID)
	require.NoError(t, err)
	assert.Equal(t, enabled.ID, got.ID)

	disabled, err := svc.CreateUser(CreateUserRequest{
		Username: "off", Password: "hunter22xyz", Role: models.RoleUser, Enabled: false,
	})
	require.NoError(t, err)

	_, err = svc.RequireActiveUser(disabled.ID)
	assert.True(t, apperrors.IsBusiness(err))

	_, err = svc.RequireActiveUser(uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.CreateUser(CreateUserRequest{Username: "x", Password: "hunter22xyz", Role: "superuser"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdateUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	a, err := svc.Register(RegisterRequest{Username: "a", Email: "a@example.com", Password: "hunter22xyz"})
	require.NoError(t, err)
	_, err = svc.Register(RegisterRequest{Username: "b", Email: "b@example.com", Password: "hunter22xyz"})
	require.NoError(t, err)

	t.Run("email conflict", func(t *testing.T) {
		_, err := svc.UpdateUser(a.ID, UpdateUserRequest{Email: "b@example.com", Enabled: true})
		assert.True(t, apperrors.IsBusiness(err))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := svc.UpdateUser(a.ID, UpdateUserRequest{Role: "root", Enabled: true})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("password change bumps token version", func(t *testing.T) {
		before, err := repo.GetByID(a.ID)
		require.NoError(t, err)

		updated, err := svc.UpdateUser(a.ID, UpdateUserRequest{Password: "newpassword1", Enabled: true})
		require.NoError(t, err)
		assert.Equal(t, before.TokenVersion+1, updated.TokenVersion)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpassword1")))
	})

	t.Run("disable account", func(t *testing.T) {
		updated, err := svc.UpdateUser(a.ID, UpdateUserRequest{Enabled: false})
		require.NoError(t, err)
		assert.False(t, updated.Enabled)
	})
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	a, err := svc.Register(RegisterRequest{Username: "a", Password: "hunter22xyz"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(a.ID))
	assert.True(t, apperrors.IsNotFound(svc.DeleteUser(a.ID)))
}
