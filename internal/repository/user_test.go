package repository

import (
	"context"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/logger"
	"fundverse/internal/model"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) (*UserRepository, *kvstore.Memory) {
	t.Helper()
	mem := kvstore.NewMemory(0)
	store := kvstore.New(mem, kvstore.WithLogger(logger.Discard()))
	ck := &clock{now: baseTime}
	return NewUserRepository(store, WithClock(ck.Now), WithLogger(logger.Discard())), mem
}

func TestSignup(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()

	u, err := r.Signup(ctx, SignupInput{Name: " Asha ", Email: "asha@example.com", Password: "secret1", Role: "Company"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, model.RoleCompany, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)

	got, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *u, *got)
}

func TestSignup_DefaultRoleIsStudent(t *testing.T) {
	r, _ := newUserRepo(t)
	u, err := r.Signup(context.Background(), SignupInput{Name: "Ravi", Email: "ravi@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)
}

func TestSignup_Validation(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()

	_, err := r.Signup(ctx, SignupInput{Email: "nope", Password: "123", Role: "admin"})
	ve, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"email", "name", "password", "role"}, sortedKeys(ve.Fields))

	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSignup_DuplicateEmailIgnoresCase(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()

	_, err := r.Signup(ctx, SignupInput{Name: "A", Email: "dup@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = r.Signup(ctx, SignupInput{Name: "B", Email: " DUP@example.com", Password: "secret2"})
	assert.True(t, errors.Is(err, errs.ErrEmailTaken))

	list, _ := r.List(ctx)
	assert.Len(t, list, 1)
}

func TestLogin(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()
	created, err := r.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "secret1", Role: "student"})
	require.NoError(t, err)

	u, err := r.Login(ctx, "A@Example.com", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	u, err = r.Login(ctx, "a@example.com", "secret1", "student")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	for _, tc := range []struct{ email, password, role string }{
		{"a@example.com", "wrong!", ""},
		{"missing@example.com", "secret1", ""},
		{"a@example.com", "secret1", "company"},
		{"a@example.com", "secret1", "guest"},
	} {
		_, err := r.Login(ctx, tc.email, tc.password, tc.role)
		assert.True(t, errors.Is(err, errs.ErrInvalidCredentials), "%+v", tc)
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()

	first, err := r.EnsureAdmin(ctx, "Admin", "admin@fundverse.io", "changeme")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)

	second, err := r.EnsureAdmin(ctx, "Admin", "ADMIN@fundverse.io", "other")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, _ := r.List(ctx)
	assert.Len(t, list, 1)

	_, err = r.EnsureAdmin(ctx, "Root", "root@fundverse.io", "")
	_, ok := errs.AsValidation(err)
	assert.True(t, ok)
}

func TestUserDelete_Idempotent(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()
	a, _ := r.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	b, _ := r.Signup(ctx, SignupInput{Name: "B", Email: "b@example.com", Password: "secret1"})

	ok, err := r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, _ := r.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	missing, err := r.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserWrites_StorageUnavailable(t *testing.T) {
	r, mem := newUserRepo(t)
	ctx := context.Background()
	_, err := r.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	mem.SetUnavailable(true)
	_, err = r.Signup(ctx, SignupInput{Name: "B", Email: "b@example.com", Password: "secret1"})
	assert.True(t, errors.Is(err, errs.ErrStorageUnavailable))

	mem.SetUnavailable(false)
	list, _ := r.List(ctx)
	assert.Len(t, list, 1)
}

func TestUserClear(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()
	_, _ = r.EnsureAdmin(ctx, "Admin", "admin@fundverse.io", "changeme")

	removed, err := r.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	list, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	removed, err = r.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestUserClear_KeepsListedUsers(t *testing.T) {
	r, _ := newUserRepo(t)
	ctx := context.Background()
	admin, err := r.EnsureAdmin(ctx, "Admin", "admin@fundverse.io", "changeme")
	require.NoError(t, err)
	_, _ = r.Signup(ctx, SignupInput{Name: "A", Email: "a@example.com", Password: "secret1"})
	_, _ = r.Signup(ctx, SignupInput{Name: "B", Email: "b@example.com", Password: "secret1"})

	removed, err := r.Clear(ctx, admin.ID, "missing-id")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, _ := r.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, admin.ID, list[0].ID)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
