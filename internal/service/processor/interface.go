// Package processor provides account, profile, wallet and ledger read operations.
package processor

import (
	"context"
	"net/http"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
)

// Processor defines a set of methods for types implementing Processor.
type Processor interface {
	Register(ctx context.Context, req modeldto.RegisterRequest) (*modelstorage.UserStorageEntry, *http.Cookie, error)
	Login(ctx context.Context, req modeldto.LoginRequest) (*modelstorage.UserStorageEntry, *http.Cookie, error)
	Logout() *http.Cookie
	Authenticate(token string) (*modelclaims.SessionClaims, error)
	GetCurrentUser(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
	GetProfile(ctx context.Context, userID string) (*modelstorage.ProfileStorageEntry, error)
	SearchProfiles(ctx context.Context, query string) ([]modelstorage.SearchStorageEntry, error)
	SetVerificationStatus(ctx context.Context, userID string, req modeldto.VerificationRequest) error
	ListWallets(ctx context.Context, userID string) ([]modelstorage.WalletStorageEntry, error)
	AddWallet(ctx context.Context, userID string, req modeldto.AddWalletRequest) (*modelstorage.WalletStorageEntry, error)
	GetHistory(ctx context.Context, userID, kind string) ([]modelstorage.HistoryStorageEntry, error)
	GetStats(ctx context.Context, userID string) (*modelstorage.StatsStorageEntry, error)
}
