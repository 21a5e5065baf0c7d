package inpsql

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/google/uuid"
)

const walletColumns = `id, user_id, wallet_address, label, created_at`

func scanWallet(row rowScanner) (*modelstorage.WalletStorageEntry, error) {
	var w modelstorage.WalletStorageEntry
	if err := row.Scan(&w.ID, &w.UserID, &w.WalletAddress, &w.Label, &w.CreatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Storage) AddWallet(ctx context.Context, userID, walletAddress string, label *string) (*modelstorage.WalletStorageEntry, error) {
	row := s.DB.QueryRowContext(ctx, `INSERT INTO wallets (id, user_id, wallet_address, label)
		VALUES ($1, $2, $3, $4)
		RETURNING `+walletColumns, uuid.NewString(), userID, walletAddress, label)
	w, err := scanWallet(row)
	if err != nil {
		err = classify(ctx, err, walletAddress)
		s.log.Error().Err(err).Str("user_id", userID).Msg("adding wallet failed")
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("wallet_id", w.ID).Msg("adding wallet done")
	return w, nil
}

// ListWallets returns the wallets of userID, newest first.
func (s *Storage) ListWallets(ctx context.Context, userID string) ([]modelstorage.WalletStorageEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	defer rows.Close()
	wallets := make([]modelstorage.WalletStorageEntry, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		wallets = append(wallets, *w)
	}
	if err = rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return wallets, nil
}

func (s *Storage) GetWallet(ctx context.Context, walletID string) (*modelstorage.WalletStorageEntry, error) {
	w, err := scanWallet(s.DB.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID))
	if err != nil {
		return nil, classify(ctx, err, walletID)
	}
	return w, nil
}

// GetPrimaryWallet returns the first wallet a user registered.
func (s *Storage) GetPrimaryWallet(ctx context.Context, userID string) (*modelstorage.WalletStorageEntry, error) {
	w, err := scanWallet(s.DB.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM wallets
		WHERE user_id = $1 ORDER BY created_at ASC LIMIT 1`, userID))
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	return w, nil
}
