package inpsql

import (
	"context"
	"database/sql"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
)

const userColumns = `id, username, email, password_hash, user_type, display_name, bio, profile_image_url,
	website_url, organization_type, verification_status, allow_donations, is_active, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*modelstorage.UserStorageEntry, error) {
	var u modelstorage.UserStorageEntry
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType, &u.DisplayName, &u.Bio,
		&u.ProfileImageURL, &u.WebsiteURL, &u.OrganizationType, &u.VerificationStatus, &u.AllowDonations,
		&u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddNewUser inserts a user inside a transaction; nothing is written on failure.
func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) (*modelstorage.UserStorageEntry, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(ctx, err, user.Email)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO users (id, username, email, password_hash, user_type, display_name, organization_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING allow_donations, is_active, created_at`)
	if err != nil {
		return nil, &storageErrors.StatementPSQLError{Err: err}
	}
	defer stmt.Close()
	err = stmt.QueryRowContext(ctx, user.ID, user.Username, user.Email, user.PasswordHash, user.UserType,
		user.DisplayName, user.OrganizationType).Scan(&user.AllowDonations, &user.IsActive, &user.CreatedAt)
	if err != nil {
		err = classify(ctx, err, user.Email)
		s.log.Error().Err(err).Str("username", user.Username).Msg("adding new user failed")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = classify(ctx, err, user.Email)
		s.log.Error().Err(err).Str("username", user.Username).Msg("adding new user failed")
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Msg("adding new user done")
	return &user, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*modelstorage.UserStorageEntry, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(ctx, err, email)
	}
	return u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	return u, nil
}

// GetPublicProfile returns the publicly visible fields of an active user.
func (s *Storage) GetPublicProfile(ctx context.Context, userID string) (*modelstorage.ProfileStorageEntry, error) {
	var p modelstorage.ProfileStorageEntry
	err := s.DB.QueryRowContext(ctx, `SELECT id, username, display_name, bio, profile_image_url, website_url,
			user_type, organization_type, verification_status, allow_donations
		FROM users WHERE id = $1 AND is_active = TRUE`, userID).
		Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.ProfileImageURL, &p.WebsiteURL, &p.UserType,
			&p.OrganizationType, &p.VerificationStatus, &p.AllowDonations)
	if err != nil {
		return nil, classify(ctx, err, userID)
	}
	return &p, nil
}

// SearchProfiles matches query against username and display name. An empty query lists active users.
func (s *Storage) SearchProfiles(ctx context.Context, query string, limit int) ([]modelstorage.SearchStorageEntry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = s.DB.QueryContext(ctx, `SELECT id, username, display_name, profile_image_url, bio
			FROM users WHERE is_active = TRUE
			ORDER BY username LIMIT $1`, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `SELECT id, username, display_name, profile_image_url, bio
			FROM users WHERE is_active = TRUE
			AND (username ILIKE $1 ESCAPE '\' OR display_name ILIKE $1 ESCAPE '\')
			ORDER BY username LIMIT $2`, "%"+escapeLike(query)+"%", limit)
	}
	if err != nil {
		return nil, classify(ctx, err, query)
	}
	defer rows.Close()
	results := make([]modelstorage.SearchStorageEntry, 0)
	for rows.Next() {
		var r modelstorage.SearchStorageEntry
		if err = rows.Scan(&r.ID, &r.Username, &r.DisplayName, &r.ProfileImageURL, &r.Bio); err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return results, nil
}

func (s *Storage) SetVerificationStatus(ctx context.Context, userID, status string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET verification_status = $1 WHERE id = $2`, status, userID)
	if err != nil {
		return classify(ctx, err, userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if n == 0 {
		return &storageErrors.NotFoundError{Err: sql.ErrNoRows, ID: userID}
	}
	s.log.Info().Str("user_id", userID).Str("status", status).Msg("setting verification status done")
	return nil
}
