package inpsql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstate"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	log := zerolog.Nop()
	return NewWithDB(db, &log), mock
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "plain", want: "plain"},
		{in: "50%", want: `50\%`},
		{in: "a_b", want: `a\_b`},
		{in: `back\slash`, want: `back\\slash`},
		{in: `\%_`, want: `\\\%\_`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.in))
	}
}

func TestAddNewUser(t *testing.T) {
	user := modelstorage.UserStorageEntry{
		ID:           "0b8e3f4e-0f5c-4a8e-9d4f-2f1f1d1b7a10",
		Username:     "ana",
		Email:        "ana@example.com",
		PasswordHash: "hash",
		UserType:     modelstorage.UserTypeIndividual,
	}

	t.Run("commits on success", func(t *testing.T) {
		st, mock := newMockStorage(t)
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO users").ExpectQuery().
			WithArgs(user.ID, user.Username, user.Email, user.PasswordHash, user.UserType, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"allow_donations", "is_active", "created_at"}).AddRow(true, true, now))
		mock.ExpectCommit()

		got, err := st.AddNewUser(context.Background(), user)
		require.NoError(t, err)
		assert.True(t, got.AllowDonations)
		assert.True(t, got.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on unique violation", func(t *testing.T) {
		st, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectPrepare("INSERT INTO users").ExpectQuery().
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		mock.ExpectRollback()

		_, err := st.AddNewUser(context.Background(), user)
		var exists *storageErrors.AlreadyExistsError
		assert.True(t, errors.As(err, &exists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByEmailNotFound(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectQuery("FROM users WHERE email").WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.GetUserByEmail(context.Background(), "ghost@example.com")
	var notFound *storageErrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestSearchProfilesEscapesPattern(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectQuery("ILIKE").WithArgs(`%50\%\_off%`, int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "display_name", "profile_image_url", "bio"}).
			AddRow("u1", "fifty", nil, nil, nil))

	got, err := st.SearchProfiles(context.Background(), "50%_off", 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fifty", got[0].Username)
	assert.Nil(t, got[0].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchProfilesEmptyQuery(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectQuery("ORDER BY username LIMIT").WithArgs(int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "display_name", "profile_image_url", "bio"}))

	got, err := st.SearchProfiles(context.Background(), "", 20)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDonationStatusMissingRow(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectExec("UPDATE donations SET status").WithArgs(modelstorage.DonationCompleted, "tx-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateDonationStatus(context.Background(), "tx-1", modelstorage.DonationCompleted)
	var notFound *storageErrors.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestGetStats(t *testing.T) {
	st, mock := newMockStorage(t)
	mock.ExpectQuery("COALESCE").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"total_donated", "total_received", "donations_sent", "donations_received"}).
			AddRow("25.50", "0", int64(2), int64(0)))

	got, err := st.GetStats(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, got.TotalDonated.Equal(decimal.RequireFromString("25.5")))
	assert.True(t, got.TotalReceived.IsZero())
	assert.Equal(t, int64(2), got.DonationsSent)
}

func TestStateStoreUpdate(t *testing.T) {
	state := modelstate.DonationState{TransactionID: "tx-1", InitiatorID: "u1", Status: modelstate.StatusQuoteCreated, Version: 2}

	t.Run("bumps version", func(t *testing.T) {
		st, mock := newMockStorage(t)
		mock.ExpectQuery("UPDATE donation_states").
			WithArgs(string(modelstate.StatusQuoteCreated), sqlmock.AnyArg(), int64(3), "tx-1", int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

		got, err := NewStateStore(st).UpdateState(context.Background(), state)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		st, mock := newMockStorage(t)
		mock.ExpectQuery("UPDATE donation_states").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
		mock.ExpectQuery("SELECT version FROM donation_states").WithArgs("tx-1").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))

		_, err := NewStateStore(st).UpdateState(context.Background(), state)
		var conflict *storageErrors.VersionConflictError
		assert.True(t, errors.As(err, &conflict))
	})

	t.Run("missing state", func(t *testing.T) {
		st, mock := newMockStorage(t)
		mock.ExpectQuery("UPDATE donation_states").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
		mock.ExpectQuery("SELECT version FROM donation_states").WillReturnRows(sqlmock.NewRows([]string{"version"}))

		_, err := NewStateStore(st).UpdateState(context.Background(), state)
		var notFound *storageErrors.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestStateStoreGetRestoresVersion(t *testing.T) {
	st, mock := newMockStorage(t)
	payload := []byte(`{"transaction_id":"tx-1","initiator_id":"u1","status":"initiated","version":1}`)
	mock.ExpectQuery("SELECT payload, version, updated_at").WithArgs("tx-1").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "version", "updated_at"}).AddRow(payload, int64(4), time.Now()))

	got, err := NewStateStore(st).GetState(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
	assert.Equal(t, modelstate.StatusInitiated, got.Status)
}
