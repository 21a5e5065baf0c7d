package inpsql

import (
	"context"
	"database/sql"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
)

const donationColumns = `d.id, d.transaction_id, d.donor_id, d.recipient_id, d.amount, d.currency,
	d.wallet_address_from, d.wallet_address_to, d.status, d.is_anonymous, d.message, d.created_at, d.updated_at`

// History kinds.
const (
	HistorySent     = "sent"
	HistoryReceived = "received"
)

func donationFields(d *modelstorage.DonationStorageEntry) []interface{} {
	return []interface{}{&d.ID, &d.TransactionID, &d.DonorID, &d.RecipientID, &d.Amount, &d.Currency,
		&d.WalletAddressFrom, &d.WalletAddressTo, &d.Status, &d.IsAnonymous, &d.Message, &d.CreatedAt, &d.UpdatedAt}
}

// AddDonation inserts a ledger row.
func (s *Storage) AddDonation(ctx context.Context, donation modelstorage.DonationStorageEntry) (*modelstorage.DonationStorageEntry, error) {
	var out modelstorage.DonationStorageEntry
	err := s.DB.QueryRowContext(ctx, `INSERT INTO donations AS d (transaction_id, donor_id, recipient_id, amount, currency,
			wallet_address_from, wallet_address_to, status, is_anonymous, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+donationColumns,
		donation.TransactionID, donation.DonorID, donation.RecipientID, donation.Amount, donation.Currency,
		donation.WalletAddressFrom, donation.WalletAddressTo, donation.Status, donation.IsAnonymous, donation.Message).
		Scan(donationFields(&out)...)
	if err != nil {
		err = classify(ctx, err, donation.TransactionID)
		s.log.Error().Err(err).Str("transaction_id", donation.TransactionID).Msg("adding donation failed")
		return nil, err
	}
	s.log.Info().Str("transaction_id", out.TransactionID).Msg("adding donation done")
	return &out, nil
}

func (s *Storage) GetDonation(ctx context.Context, transactionID string) (*modelstorage.DonationStorageEntry, error) {
	var out modelstorage.DonationStorageEntry
	err := s.DB.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations d WHERE d.transaction_id = $1`, transactionID).
		Scan(donationFields(&out)...)
	if err != nil {
		return nil, classify(ctx, err, transactionID)
	}
	return &out, nil
}

func (s *Storage) UpdateDonationStatus(ctx context.Context, transactionID, status string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE donations SET status = $1, updated_at = NOW() WHERE transaction_id = $2`,
		status, transactionID)
	if err != nil {
		err = classify(ctx, err, transactionID)
		s.log.Error().Err(err).Str("transaction_id", transactionID).Msg("updating donation status failed")
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if n == 0 {
		return &storageErrors.NotFoundError{Err: sql.ErrNoRows, ID: transactionID}
	}
	s.log.Info().Str("transaction_id", transactionID).Str("status", status).Msg("updating donation status done")
	return nil
}

// GetHistory lists the donations of userID, newest first. kind selects sent, received or both.
func (s *Storage) GetHistory(ctx context.Context, userID, kind string) ([]modelstorage.HistoryStorageEntry, error) {
	var query string
	switch kind {
	case HistorySent:
		query = `SELECT ` + donationColumns + `, NULL::text, NULL::text, r.username, r.display_name
			FROM donations d
			JOIN users r ON d.recipient_id = r.id
			WHERE d.donor_id = $1
			ORDER BY d.created_at DESC`
	case HistoryReceived:
		query = `SELECT ` + donationColumns + `, dn.username, dn.display_name, NULL::text, NULL::text
			FROM donations d
			LEFT JOIN users dn ON d.donor_id = dn.id
			WHERE d.recipient_id = $1
			ORDER BY d.created_at DESC`
	default:
		query = `SELECT ` + donationColumns + `, dn.username, dn.display_name, r.username, r.display_name
			FROM donations d
			LEFT JOIN users dn ON d.donor_id = dn.id
			JOIN users r ON d.recipient_id = r.id
			WHERE d.donor_id = $1 OR d.recipient_id = $1
			ORDER BY d.created_at DESC`
	}
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	defer rows.Close()
	history := make([]modelstorage.HistoryStorageEntry, 0)
	for rows.Next() {
		var h modelstorage.HistoryStorageEntry
		dest := append(donationFields(&h.DonationStorageEntry), &h.DonorUsername, &h.DonorName, &h.RecipientUsername, &h.RecipientName)
		if err = rows.Scan(dest...); err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		history = append(history, h)
	}
	if err = rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return history, nil
}

// GetStats aggregates completed donations sent and received by userID.
func (s *Storage) GetStats(ctx context.Context, userID string) (*modelstorage.StatsStorageEntry, error) {
	var st modelstorage.StatsStorageEntry
	err := s.DB.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN donor_id = $1 THEN amount END), 0),
			COALESCE(SUM(CASE WHEN recipient_id = $1 THEN amount END), 0),
			COUNT(CASE WHEN donor_id = $1 THEN 1 END),
			COUNT(CASE WHEN recipient_id = $1 THEN 1 END)
		FROM donations
		WHERE status = 'completed' AND (donor_id = $1 OR recipient_id = $1)`, userID).
		Scan(&st.TotalDonated, &st.TotalReceived, &st.DonationsSent, &st.DonationsReceived)
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	return &st, nil
}
