package inmem

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage keeps users, wallets and the donation ledger in process memory.
type Storage struct {
	mu        sync.RWMutex
	users     map[string]modelstorage.UserStorageEntry
	wallets   map[string]modelstorage.WalletStorageEntry
	donations map[string]modelstorage.DonationStorageEntry
	nextID    int64
	now       func() time.Time
}

func NewStorage() *Storage {
	return &Storage{
		users:     make(map[string]modelstorage.UserStorageEntry),
		wallets:   make(map[string]modelstorage.WalletStorageEntry),
		donations: make(map[string]modelstorage.DonationStorageEntry),
		now:       time.Now,
	}
}

// tick returns strictly increasing timestamps so that ordering by creation time is stable.
func (s *Storage) tick() time.Time {
	s.nextID++
	return s.now().Add(time.Duration(s.nextID) * time.Microsecond)
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username || u.ID == user.ID {
			return nil, &storageErrors.AlreadyExistsError{ID: user.Email}
		}
	}
	user.AllowDonations = true
	user.IsActive = true
	user.CreatedAt = s.tick()
	s.users[user.ID] = user
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, &storageErrors.NotFoundError{ID: email}
}

func (s *Storage) GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	return &u, nil
}

// UpdateUser replaces a stored user. It backs fixtures that need inactive or closed accounts.
func (s *Storage) UpdateUser(user modelstorage.UserStorageEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// DeleteUser removes a user together with their wallets.
func (s *Storage) DeleteUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	for id, w := range s.wallets {
		if w.UserID == userID {
			delete(s.wallets, id)
		}
	}
}

func (s *Storage) GetPublicProfile(ctx context.Context, userID string) (*modelstorage.ProfileStorageEntry, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	return &modelstorage.ProfileStorageEntry{
		ID:                 u.ID,
		Username:           u.Username,
		DisplayName:        u.DisplayName,
		Bio:                u.Bio,
		ProfileImageURL:    u.ProfileImageURL,
		WebsiteURL:         u.WebsiteURL,
		UserType:           u.UserType,
		OrganizationType:   u.OrganizationType,
		VerificationStatus: u.VerificationStatus,
		AllowDonations:     u.AllowDonations,
	}, nil
}

func (s *Storage) SearchProfiles(ctx context.Context, query string, limit int) ([]modelstorage.SearchStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	results := make([]modelstorage.SearchStorageEntry, 0)
	for _, u := range s.users {
		if !u.IsActive {
			continue
		}
		name := ""
		if u.DisplayName != nil {
			name = strings.ToLower(*u.DisplayName)
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Username), q) && !strings.Contains(name, q) {
			continue
		}
		results = append(results, modelstorage.SearchStorageEntry{
			ID: u.ID, Username: u.Username, DisplayName: u.DisplayName, ProfileImageURL: u.ProfileImageURL, Bio: u.Bio,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Username < results[j].Username })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Storage) SetVerificationStatus(ctx context.Context, userID, status string) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return &storageErrors.NotFoundError{ID: userID}
	}
	u.VerificationStatus = &status
	s.users[userID] = u
	return nil
}

func (s *Storage) AddWallet(ctx context.Context, userID, walletAddress string, label *string) (*modelstorage.WalletStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := modelstorage.WalletStorageEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		WalletAddress: walletAddress,
		Label:         label,
		CreatedAt:     s.tick(),
	}
	s.wallets[w.ID] = w
	return &w, nil
}

func (s *Storage) ListWallets(ctx context.Context, userID string) ([]modelstorage.WalletStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallets := make([]modelstorage.WalletStorageEntry, 0)
	for _, w := range s.wallets {
		if w.UserID == userID {
			wallets = append(wallets, w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].CreatedAt.After(wallets[j].CreatedAt) })
	return wallets, nil
}

func (s *Storage) GetWallet(ctx context.Context, walletID string) (*modelstorage.WalletStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[walletID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: walletID}
	}
	return &w, nil
}

func (s *Storage) GetPrimaryWallet(ctx context.Context, userID string) (*modelstorage.WalletStorageEntry, error) {
	wallets, err := s.ListWallets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	oldest := wallets[len(wallets)-1]
	return &oldest, nil
}

func (s *Storage) AddDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) (*modelstorage.DonationStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[donation.TransactionID]; ok {
		return nil, &storageErrors.AlreadyExistsError{ID: donation.TransactionID}
	}
	donation.CreatedAt = s.tick()
	donation.UpdatedAt = donation.CreatedAt
	donation.ID = s.nextID
	s.donations[donation.TransactionID] = donation
	return &donation, nil
}

func (s *Storage) GetDonation(ctx context.Context, transactionID string) (*modelstorage.DonationStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[transactionID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: transactionID}
	}
	return &d, nil
}

func (s *Storage) UpdateDonationStatus(ctx context.Context, transactionID, status string) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[transactionID]
	if !ok {
		return &storageErrors.NotFoundError{ID: transactionID}
	}
	d.Status = status
	d.UpdatedAt = s.tick()
	s.donations[transactionID] = d
	return nil
}

func (s *Storage) GetHistory(ctx context.Context, userID, kind string) ([]modelstorage.HistoryStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]modelstorage.HistoryStorageEntry, 0)
	for _, d := range s.donations {
		sent := d.DonorID != nil && *d.DonorID == userID
		received := d.RecipientID == userID
		switch {
		case kind == "sent" && !sent, kind == "received" && !received, !sent && !received:
			continue
		}
		h := modelstorage.HistoryStorageEntry{DonationStorageEntry: d}
		if kind != "received" {
			if r, ok := s.users[d.RecipientID]; ok {
				h.RecipientUsername, h.RecipientName = &r.Username, r.DisplayName
			}
		}
		if kind != "sent" && d.DonorID != nil {
			if dn, ok := s.users[*d.DonorID]; ok {
				h.DonorUsername, h.DonorName = &dn.Username, dn.DisplayName
			}
		}
		history = append(history, h)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	return history, nil
}

func (s *Storage) GetStats(ctx context.Context, userID string) (*modelstorage.StatsStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := modelstorage.StatsStorageEntry{TotalDonated: decimal.Zero, TotalReceived: decimal.Zero}
	for _, d := range s.donations {
		if d.Status != modelstorage.DonationCompleted {
			continue
		}
		if d.DonorID != nil && *d.DonorID == userID {
			st.TotalDonated = st.TotalDonated.Add(d.Amount)
			st.DonationsSent++
		}
		if d.RecipientID == userID {
			st.TotalReceived = st.TotalReceived.Add(d.Amount)
			st.DonationsReceived++
		}
	}
	return &st, nil
}
