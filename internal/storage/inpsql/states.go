package inpsql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstate"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
)

// StateStore keeps donation states in the donation_states table.
type StateStore struct {
	*Storage
}

// NewStateStore shares the connection pool of st.
func NewStateStore(st *Storage) *StateStore {
	return &StateStore{Storage: st}
}

func (s *StateStore) CreateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error) {
	state.Version = 1
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	err = s.DB.QueryRowContext(ctx, `INSERT INTO donation_states (transaction_id, initiator_id, status, payload, version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at`, state.TransactionID, state.InitiatorID, string(state.Status), payload, state.Version).
		Scan(&state.UpdatedAt)
	if err != nil {
		return nil, classify(ctx, err, state.TransactionID)
	}
	return &state, nil
}

func (s *StateStore) GetState(ctx context.Context, transactionID string) (*modelstate.DonationState, error) {
	var (
		payload []byte
		state   modelstate.DonationState
		version int64
	)
	err := s.DB.QueryRowContext(ctx, `SELECT payload, version, updated_at FROM donation_states WHERE transaction_id = $1`,
		transactionID).Scan(&payload, &version, &state.UpdatedAt)
	if err != nil {
		return nil, classify(ctx, err, transactionID)
	}
	updatedAt := state.UpdatedAt
	if err = json.Unmarshal(payload, &state); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	state.Version = version
	state.UpdatedAt = updatedAt
	return &state, nil
}

// UpdateState writes state if its Version still matches the stored one and returns it with the next version.
func (s *StateStore) UpdateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error) {
	expected := state.Version
	state.Version = expected + 1
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	err = s.DB.QueryRowContext(ctx, `UPDATE donation_states
		SET status = $1, payload = $2, version = $3, updated_at = NOW()
		WHERE transaction_id = $4 AND version = $5
		RETURNING updated_at`, string(state.Status), payload, state.Version, state.TransactionID, expected).
		Scan(&state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missOrConflict(ctx, state.TransactionID, expected)
	}
	if err != nil {
		return nil, classify(ctx, err, state.TransactionID)
	}
	return &state, nil
}

func (s *StateStore) DeleteState(ctx context.Context, transactionID string, version int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM donation_states WHERE transaction_id = $1 AND version = $2`,
		transactionID, version)
	if err != nil {
		return classify(ctx, err, transactionID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if n == 0 {
		return s.missOrConflict(ctx, transactionID, version)
	}
	return nil
}

func (s *StateStore) missOrConflict(ctx context.Context, transactionID string, expected int64) error {
	var current int64
	err := s.DB.QueryRowContext(ctx, `SELECT version FROM donation_states WHERE transaction_id = $1`, transactionID).
		Scan(&current)
	if err != nil {
		return classify(ctx, err, transactionID)
	}
	return &storageErrors.VersionConflictError{ID: transactionID, Expected: expected}
}
