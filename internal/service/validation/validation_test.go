package validation

import (
	"errors"
	"testing"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(t *testing.T, err error) []string {
	t.Helper()
	var vErr *serviceErrors.ValidationError
	require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
	var out []string
	for _, f := range vErr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestRegisterRequest(t *testing.T) {
	v := New()
	ok := modeldto.RegisterRequest{Email: "ana@example.com", Password: "secret1", Username: "ana.m_1"}
	assert.NoError(t, v.Struct(ok))

	bad := modeldto.RegisterRequest{Email: "nope", Password: "123", Username: "a!", UserType: "admin"}
	assert.ElementsMatch(t, []string{"email", "password", "username", "user_type"}, fields(t, v.Struct(bad)))
}

func TestUsernameBounds(t *testing.T) {
	v := New()
	for name, want := range map[string]bool{
		"ab":                              false,
		"abc":                             true,
		"abcdefghijklmnopqrstuvwxyz1234":  true,
		"abcdefghijklmnopqrstuvwxyz12345": false,
		"with space":                      false,
	} {
		err := v.Var("username", name, "username")
		assert.Equal(t, want, err == nil, name)
	}
}

func TestInitiateRequestMissingAmount(t *testing.T) {
	v := New()
	req := modeldto.InitiateDonationRequest{RecipientID: "not-a-uuid", Currency: "US"}
	assert.ElementsMatch(t, []string{"recipientId", "amount", "currency"}, fields(t, v.Struct(req)))
}
