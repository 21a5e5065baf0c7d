// Package modeldto provides types for request and response bodies.

package modeldto

import (
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	"github.com/shopspring/decimal"
)

type (
	RegisterRequest struct {
		Email            string  `json:"email" validate:"required,email"`
		Password         string  `json:"password" validate:"required,min=6"`
		Username         string  `json:"username" validate:"required,username"`
		UserType         string  `json:"user_type" validate:"omitempty,oneof=individual organization"`
		DisplayName      *string `json:"display_name" validate:"omitempty,max=100"`
		OrganizationType *string `json:"organization_type" validate:"omitempty,max=100"`
		Remember         bool    `json:"remember"`
	}
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Remember bool   `json:"remember"`
	}
	AddWalletRequest struct {
		WalletAddress string  `json:"walletAddress" validate:"required,http_url"`
		Label         *string `json:"label" validate:"omitempty,max=100"`
	}
	VerificationRequest struct {
		Status string `json:"status" validate:"required,oneof=pending verified rejected"`
	}
	InitiateDonationRequest struct {
		RecipientID string           `json:"recipientId" validate:"required,uuid"`
		Amount      *decimal.Decimal `json:"amount" validate:"required"`
		Currency    string           `json:"currency" validate:"required,len=3,alpha"`
		Message     *string          `json:"message" validate:"omitempty,max=500"`
		IsAnonymous bool             `json:"isAnonymous"`
	}
	CompleteDonationRequest struct {
		InteractRef string `json:"interactRef"`
	}
)

type (
	FieldError struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	ErrorResponse struct {
		Error string `json:"error"`
	}
	ValidationErrorResponse struct {
		Errors []FieldError `json:"errors"`
	}
	OKResponse struct {
		OK bool `json:"ok"`
	}
	UserResponse struct {
		User *modelstorage.UserStorageEntry `json:"user"`
	}
	ProfileResponse struct {
		User *modelstorage.ProfileStorageEntry `json:"user"`
	}
	SearchResponse struct {
		Results []modelstorage.SearchStorageEntry `json:"results"`
	}
	WalletsResponse struct {
		Wallets []modelstorage.WalletStorageEntry `json:"wallets"`
	}
	WalletInfo struct {
		modelstorage.WalletStorageEntry
		WalletAddressInfo *modelpayments.WalletAddress `json:"walletAddressInfo"`
	}
	WalletInfoResponse struct {
		Wallet WalletInfo `json:"wallet"`
	}
	InitiateDonationResponse struct {
		Success            bool                               `json:"success"`
		DonationID         string                             `json:"donationId"`
		Donation           *modelstorage.DonationStorageEntry `json:"donation"`
		IncomingPaymentURL string                             `json:"incomingPaymentUrl"`
		NextStep           string                             `json:"nextStep"`
	}
	QuoteSummary struct {
		ID            string               `json:"id"`
		DebitAmount   modelpayments.Amount `json:"debitAmount"`
		ReceiveAmount modelpayments.Amount `json:"receiveAmount"`
		ExpiresAt     *time.Time           `json:"expiresAt"`
	}
	CreateQuoteResponse struct {
		Success  bool         `json:"success"`
		Quote    QuoteSummary `json:"quote"`
		NextStep string       `json:"nextStep"`
	}
	RequestGrantResponse struct {
		Success            bool   `json:"success"`
		RequiresUserAction bool   `json:"requiresUserAction"`
		InteractionURL     string `json:"interactionUrl"`
		Message            string `json:"message"`
		NextStep           string `json:"nextStep"`
	}
	OutgoingPaymentSummary struct {
		ID            string               `json:"id"`
		DebitAmount   modelpayments.Amount `json:"debitAmount"`
		ReceiveAmount modelpayments.Amount `json:"receiveAmount"`
		CreatedAt     time.Time            `json:"createdAt"`
	}
	CompleteDonationResponse struct {
		Success         bool                   `json:"success"`
		Message         string                 `json:"message"`
		OutgoingPayment OutgoingPaymentSummary `json:"outgoingPayment"`
	}
	HistoryResponse struct {
		Donations []modelstorage.HistoryStorageEntry `json:"donations"`
	}
	StatsResponse struct {
		Stats *modelstorage.StatsStorageEntry `json:"stats"`
	}
)
