// Package inmem implements process-local storage backends.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstate"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
)

type StateStore struct {
	mu     sync.Mutex
	states map[string]modelstate.DonationState
	now    func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: make(map[string]modelstate.DonationState),
		now:    time.Now,
	}
}

func (s *StateStore) CreateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.TransactionID]; ok {
		return nil, &storageErrors.AlreadyExistsError{ID: state.TransactionID}
	}
	state.Version = 1
	state.UpdatedAt = s.now()
	s.states[state.TransactionID] = state
	return &state, nil
}

func (s *StateStore) GetState(ctx context.Context, transactionID string) (*modelstate.DonationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[transactionID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: transactionID}
	}
	return &state, nil
}

func (s *StateStore) UpdateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[state.TransactionID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: state.TransactionID}
	}
	if current.Version != state.Version {
		return nil, &storageErrors.VersionConflictError{ID: state.TransactionID, Expected: state.Version}
	}
	state.Version++
	state.UpdatedAt = s.now()
	s.states[state.TransactionID] = state
	return &state, nil
}

func (s *StateStore) DeleteState(ctx context.Context, transactionID string, version int64) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[transactionID]
	if !ok {
		return &storageErrors.NotFoundError{ID: transactionID}
	}
	if current.Version != version {
		return &storageErrors.VersionConflictError{ID: transactionID, Expected: version}
	}
	delete(s.states, transactionID)
	return nil
}
