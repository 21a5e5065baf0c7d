// Package modelstorage provides types for storage row representation.

package modelstorage

import (
	"time"

	"github.com/shopspring/decimal"
)

// User types.
const (
	UserTypeIndividual   = "individual"
	UserTypeOrganization = "organization"
	UserTypeAdmin        = "admin"
)

// Ledger statuses.
const (
	DonationPending   = "pending"
	DonationCompleted = "completed"
	DonationFailed    = "failed"
)

type (
	UserStorageEntry struct {
		ID                 string    `json:"id"`
		Username           string    `json:"username"`
		Email              string    `json:"email"`
		PasswordHash       string    `json:"-"`
		UserType           string    `json:"user_type"`
		DisplayName        *string   `json:"display_name"`
		Bio                *string   `json:"bio"`
		ProfileImageURL    *string   `json:"profile_image_url"`
		WebsiteURL         *string   `json:"website_url"`
		OrganizationType   *string   `json:"organization_type"`
		VerificationStatus *string   `json:"verification_status"`
		AllowDonations     bool      `json:"allow_donations"`
		IsActive           bool      `json:"is_active"`
		CreatedAt          time.Time `json:"created_at"`
	}
	ProfileStorageEntry struct {
		ID                 string  `json:"id"`
		Username           string  `json:"username"`
		DisplayName        *string `json:"display_name"`
		Bio                *string `json:"bio"`
		ProfileImageURL    *string `json:"profile_image_url"`
		WebsiteURL         *string `json:"website_url"`
		UserType           string  `json:"user_type"`
		OrganizationType   *string `json:"organization_type"`
		VerificationStatus *string `json:"verification_status"`
		AllowDonations     bool    `json:"allow_donations"`
	}
	SearchStorageEntry struct {
		ID              string  `json:"id"`
		Username        string  `json:"username"`
		DisplayName     *string `json:"display_name"`
		ProfileImageURL *string `json:"profile_image_url"`
		Bio             *string `json:"bio"`
	}
	WalletStorageEntry struct {
		ID            string    `json:"id"`
		UserID        string    `json:"user_id"`
		WalletAddress string    `json:"wallet_address"`
		Label         *string   `json:"label"`
		CreatedAt     time.Time `json:"created_at"`
	}
	DonationStorageEntry struct {
		ID                int64           `json:"id"`
		TransactionID     string          `json:"transaction_id"`
		DonorID           *string         `json:"donor_id"`
		RecipientID       string          `json:"recipient_id"`
		Amount            decimal.Decimal `json:"amount"`
		Currency          string          `json:"currency"`
		WalletAddressFrom string          `json:"wallet_address_from"`
		WalletAddressTo   string          `json:"wallet_address_to"`
		Status            string          `json:"status"`
		IsAnonymous       bool            `json:"is_anonymous"`
		Message           *string         `json:"message"`
		CreatedAt         time.Time       `json:"created_at"`
		UpdatedAt         time.Time       `json:"updated_at"`
	}
	HistoryStorageEntry struct {
		DonationStorageEntry
		DonorUsername     *string `json:"donor_username"`
		DonorName         *string `json:"donor_name"`
		RecipientUsername *string `json:"recipient_username"`
		RecipientName     *string `json:"recipient_name"`
	}
	StatsStorageEntry struct {
		TotalDonated      decimal.Decimal `json:"total_donated"`
		TotalReceived     decimal.Decimal `json:"total_received"`
		DonationsSent     int64           `json:"donations_sent"`
		DonationsReceived int64           `json:"donations_received"`
	}
)
