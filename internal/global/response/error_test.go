package response

import (
	"fundverse/internal/global/errs"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsUsesKey(t *testing.T) {
	assert.True(t, errors.Is(ErrForbidden.WithTips("owner only"), ErrForbidden))
	assert.True(t, errors.Is(ErrNotFound.WithOrigin(errors.New("x")), ErrNotFound))

	// 同为 401 / 409，但不是同一个错误
	assert.False(t, errors.Is(ErrTokenInvalid, ErrInvalidCredentials))
	assert.False(t, errors.Is(ErrEmailTaken, ErrAlreadyExists))
}

func TestError_WithTips(t *testing.T) {
	e := ErrForbidden.WithTips("status is managed", "ask an admin")
	assert.Equal(t, "Permission denied: status is managed; ask an admin", e.Message)
	assert.Equal(t, "Permission denied", ErrForbidden.Message)
	assert.Same(t, ErrForbidden, ErrForbidden.WithTips())
}

func TestError_WithOriginKeepsStack(t *testing.T) {
	cause := errors.New("disk gone")
	e := ErrStorage.WithOrigin(cause)
	assert.Equal(t, cause, errors.Cause(e.Unwrap()))
	assert.NotEmpty(t, e.StackTrace())
	assert.Contains(t, e.Origin, "disk gone")
	assert.Contains(t, e.Error(), "503 Storage unavailable")
	assert.Same(t, ErrStorage, ErrStorage.WithOrigin(nil))
}

func TestFromError(t *testing.T) {
	cases := []struct {
		err  error
		want *Error
	}{
		{errs.NewValidation(map[string]string{"title": "required"}), ErrValidation},
		{errs.NotFound("campaign", "c1"), ErrNotFound},
		{errors.Wrap(errs.ErrEmailTaken, "signup"), ErrEmailTaken},
		{errors.WithStack(errs.ErrInvalidCredentials), ErrInvalidCredentials},
		{errors.Wrap(errs.ErrQuotaExceeded, "persist"), ErrStorageQuota},
		{errors.Wrap(errs.ErrStorageUnavailable, "persist"), ErrStorage},
		{errs.NewHTTPError(http.StatusBadGateway, "502 Bad Gateway", nil), ErrUpstream},
		{errors.New("boom"), ErrServerInternal},
		{ErrForbidden.WithTips("x"), ErrForbidden},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		require.NotNil(t, got)
		assert.True(t, errors.Is(got, tc.want), "%v -> %v", tc.err, got)
		assert.Equal(t, tc.want.Code, got.Code)
	}
	assert.Nil(t, FromError(nil))
}
