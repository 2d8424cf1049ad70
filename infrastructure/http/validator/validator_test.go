package validator

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerror "github.com/fixora/gatekeeper/domain/error"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer a.b.c", "a.b.c"},
		{"bearer a.b.c", "a.b.c"},
		{"Bearer  a.b.c ", "a.b.c"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"Bearer not-a-jwt", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BearerToken(tt.header), tt.header)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "a@b.co", dst.Email)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.co","admin":true}`))
	assert.ErrorIs(t, DecodeJSON(r, &dst), domainerror.ErrInvalidRequest(""))

	r = httptest.NewRequest("POST", "/", strings.NewReader(``))
	err := DecodeJSON(r, &dst)
	assert.Equal(t, domainerror.ErrCodeInvalidRequest, domainerror.Code(err))
}

func TestDecodeOptionalJSON(t *testing.T) {
	var dst struct {
		RefreshToken string `json:"refreshToken"`
	}

	r := httptest.NewRequest("POST", "/", io.NopCloser(strings.NewReader("")))
	r.ContentLength = -1
	require.NoError(t, DecodeOptionalJSON(r, &dst))
	assert.Empty(t, dst.RefreshToken)

	r = httptest.NewRequest("POST", "/", nil)
	require.NoError(t, DecodeOptionalJSON(r, &dst))

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"refreshToken":"a.b.c"}`))
	require.NoError(t, DecodeOptionalJSON(r, &dst))
	assert.Equal(t, "a.b.c", dst.RefreshToken)

	r = httptest.NewRequest("POST", "/", strings.NewReader(`{"refreshToken":`))
	err := DecodeOptionalJSON(r, &dst)
	assert.Equal(t, domainerror.ErrCodeInvalidRequest, domainerror.Code(err))
}
