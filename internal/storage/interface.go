package storage

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstate"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
)

type Register interface {
	AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) (*modelstorage.UserStorageEntry, error)
	GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error)
	GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
}

type Profiles interface {
	GetPublicProfile(ctx context.Context, userID string) (*modelstorage.ProfileStorageEntry, error)
	SearchProfiles(ctx context.Context, query string, limit int) ([]modelstorage.SearchStorageEntry, error)
	SetVerificationStatus(ctx context.Context, userID, status string) error
}

type Wallets interface {
	AddWallet(ctx context.Context, userID, walletAddress string, label *string) (*modelstorage.WalletStorageEntry, error)
	ListWallets(ctx context.Context, userID string) ([]modelstorage.WalletStorageEntry, error)
	GetWallet(ctx context.Context, walletID string) (*modelstorage.WalletStorageEntry, error)
	GetPrimaryWallet(ctx context.Context, userID string) (*modelstorage.WalletStorageEntry, error)
}

type Ledger interface {
	AddDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) (*modelstorage.DonationStorageEntry, error)
	GetDonation(ctx context.Context, transactionID string) (*modelstorage.DonationStorageEntry, error)
	UpdateDonationStatus(ctx context.Context, transactionID, status string) error
	GetHistory(ctx context.Context, userID, kind string) ([]modelstorage.HistoryStorageEntry, error)
	GetStats(ctx context.Context, userID string) (*modelstorage.StatsStorageEntry, error)
}

// States keeps transient donation state. Writes are compare-and-swap on Version.
type States interface {
	CreateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error)
	GetState(ctx context.Context, transactionID string) (*modelstate.DonationState, error)
	UpdateState(ctx context.Context, state modelstate.DonationState) (*modelstate.DonationState, error)
	DeleteState(ctx context.Context, transactionID string, version int64) error
}

type Storage interface {
	Register
	Profiles
	Wallets
	Ledger
}
