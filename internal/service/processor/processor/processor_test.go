package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/danilovkiri/dk-go-donations/internal/storage/inmem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T) (*Processor, *inmem.Storage) {
	t.Helper()
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "test-key", TokenTTL: config.TokenTTL(time.Hour)}, false)
	require.NoError(t, err)
	st := inmem.NewStorage()
	log := zerolog.Nop()
	proc, err := InitService(st, sec, &log)
	require.NoError(t, err)
	return proc, st
}

func register(t *testing.T, proc *Processor, email, username string) *modelstorage.UserStorageEntry {
	t.Helper()
	user, _, err := proc.Register(context.Background(), modeldto.RegisterRequest{
		Email:    email,
		Password: "secret1",
		Username: username,
	})
	require.NoError(t, err)
	return user
}

func TestInitServiceNilArguments(t *testing.T) {
	log := zerolog.Nop()
	_, err := InitService(nil, nil, &log)
	var nilArg *serviceErrors.ServiceFoundNilArgument
	assert.True(t, errors.As(err, &nilArg))
}

func TestRegister(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()

	user, cookie, err := proc.Register(ctx, modeldto.RegisterRequest{
		Email:    "  Alice@Example.com ",
		Password: "secret1",
		Username: "alice",
		Remember: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, modelstorage.UserTypeIndividual, user.UserType)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Equal(t, secretary.CookieName, cookie.Name)
	assert.Equal(t, int(secretary.RememberFor.Seconds()), cookie.MaxAge)

	claims, err := proc.Authenticate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = proc.Register(ctx, modeldto.RegisterRequest{Email: "alice@example.com", Password: "secret1", Username: "alice2"})
	var exists *storageErrors.AlreadyExistsError
	assert.True(t, errors.As(err, &exists))
}

func TestRegisterValidation(t *testing.T) {
	proc, _ := newProcessor(t)
	_, _, err := proc.Register(context.Background(), modeldto.RegisterRequest{
		Email:    "not-an-email",
		Password: "123",
		Username: "a b",
		UserType: "admin",
	})
	var validationErr *serviceErrors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	fields := make([]string, 0, len(validationErr.Fields))
	for _, f := range validationErr.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"email", "password", "username", "user_type"}, fields)
}

func TestLogin(t *testing.T) {
	proc, st := newProcessor(t)
	ctx := context.Background()
	user := register(t, proc, "bob@example.com", "bob")

	_, cookie, err := proc.Login(ctx, modeldto.LoginRequest{Email: "BOB@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Zero(t, cookie.MaxAge)

	tests := []struct {
		name string
		req  modeldto.LoginRequest
	}{
		{name: "unknown email", req: modeldto.LoginRequest{Email: "nobody@example.com", Password: "secret1"}},
		{name: "wrong password", req: modeldto.LoginRequest{Email: "bob@example.com", Password: "wrong"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := proc.Login(ctx, tt.req)
			var invalid *serviceErrors.InvalidCredentialsError
			assert.True(t, errors.As(err, &invalid))
		})
	}

	user.IsActive = false
	st.UpdateUser(*user)
	_, _, err = proc.Login(ctx, modeldto.LoginRequest{Email: "bob@example.com", Password: "secret1"})
	var invalid *serviceErrors.InvalidCredentialsError
	assert.True(t, errors.As(err, &invalid))
}

// countingSecretary records password comparisons.
type countingSecretary struct {
	*secretary.Secretary
	compares int
}

func (c *countingSecretary) ComparePassword(hash, password string) bool {
	c.compares++
	return c.Secretary.ComparePassword(hash, password)
}

func TestLoginAlwaysComparesPassword(t *testing.T) {
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "test-key", TokenTTL: config.TokenTTL(time.Hour)}, false)
	require.NoError(t, err)
	counting := &countingSecretary{Secretary: sec}
	st := inmem.NewStorage()
	log := zerolog.Nop()
	proc, err := InitService(st, counting, &log)
	require.NoError(t, err)
	ctx := context.Background()
	user := register(t, proc, "carol@example.com", "carol")

	var invalid *serviceErrors.InvalidCredentialsError
	_, _, err = proc.Login(ctx, modeldto.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, 1, counting.compares)

	user.IsActive = false
	st.UpdateUser(*user)
	_, _, err = proc.Login(ctx, modeldto.LoginRequest{Email: "carol@example.com", Password: "secret1"})
	assert.True(t, errors.As(err, &invalid))
	assert.Equal(t, 2, counting.compares)
}

func TestAuthenticate(t *testing.T) {
	proc, _ := newProcessor(t)
	var unauthorized *serviceErrors.UnauthorizedError
	_, err := proc.Authenticate("")
	assert.True(t, errors.As(err, &unauthorized))
	_, err = proc.Authenticate("garbage")
	assert.True(t, errors.As(err, &unauthorized))
	assert.Equal(t, -1, proc.Logout().MaxAge)
}

func TestProfiles(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()
	user := register(t, proc, "carol@example.com", "carol")

	_, err := proc.GetProfile(ctx, "not-a-uuid")
	var validationErr *serviceErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = proc.GetProfile(ctx, "6f1f3c1e-3a57-4c7e-9d8a-0b8c0f7e2d11")
	var notFound *serviceErrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	profile, err := proc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", profile.Username)

	results, err := proc.SearchProfiles(ctx, "  CAR ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, user.ID, results[0].ID)
}

func TestSetVerificationStatus(t *testing.T) {
	proc, st := newProcessor(t)
	ctx := context.Background()
	user := register(t, proc, "org@example.com", "org")

	err := proc.SetVerificationStatus(ctx, user.ID, modeldto.VerificationRequest{Status: "approved"})
	var validationErr *serviceErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	require.NoError(t, proc.SetVerificationStatus(ctx, user.ID, modeldto.VerificationRequest{Status: "verified"}))
	stored, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationStatus)
	assert.Equal(t, "verified", *stored.VerificationStatus)

	err = proc.SetVerificationStatus(ctx, "6f1f3c1e-3a57-4c7e-9d8a-0b8c0f7e2d11", modeldto.VerificationRequest{Status: "verified"})
	var notFound *serviceErrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestWallets(t *testing.T) {
	proc, _ := newProcessor(t)
	ctx := context.Background()
	user := register(t, proc, "dan@example.com", "dan")

	_, err := proc.AddWallet(ctx, user.ID, modeldto.AddWalletRequest{WalletAddress: "not a url"})
	var validationErr *serviceErrors.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	wallet, err := proc.AddWallet(ctx, user.ID, modeldto.AddWalletRequest{WalletAddress: " https://wallet.example/dan "})
	require.NoError(t, err)
	assert.Equal(t, "https://wallet.example/dan", wallet.WalletAddress)

	wallets, err := proc.ListWallets(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	assert.Equal(t, wallet.ID, wallets[0].ID)
}
