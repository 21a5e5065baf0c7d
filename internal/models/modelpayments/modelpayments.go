// Package modelpayments provides Open Payments resource types exchanged with the payment authority.
package modelpayments

import "time"

// Grant access types.
const (
	AccessIncomingPayment = "incoming-payment"
	AccessQuote           = "quote"
	AccessOutgoingPayment = "outgoing-payment"
)

// WalletAddress is the public document served at a wallet address URL.
type WalletAddress struct {
	ID             string `json:"id"`
	PublicName     string `json:"publicName,omitempty"`
	AssetCode      string `json:"assetCode"`
	AssetScale     int32  `json:"assetScale"`
	AuthServer     string `json:"authServer"`
	ResourceServer string `json:"resourceServer"`
}

// Amount is a value expressed in minor units of an asset.
type Amount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale int32  `json:"assetScale"`
}

// IncomingPayment is the receiver-side leg of a transfer.
type IncomingPayment struct {
	ID             string     `json:"id"`
	WalletAddress  string     `json:"walletAddress"`
	IncomingAmount *Amount    `json:"incomingAmount,omitempty"`
	ReceivedAmount *Amount    `json:"receivedAmount,omitempty"`
	Completed      bool       `json:"completed"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Quote is a priced commitment for delivering an amount to a receiver.
type Quote struct {
	ID            string     `json:"id"`
	WalletAddress string     `json:"walletAddress"`
	Receiver      string     `json:"receiver"`
	DebitAmount   Amount     `json:"debitAmount"`
	ReceiveAmount Amount     `json:"receiveAmount"`
	Method        string     `json:"method"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// OutgoingPayment is the sender-side leg of a transfer.
type OutgoingPayment struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"walletAddress"`
	QuoteID       string    `json:"quoteId,omitempty"`
	DebitAmount   Amount    `json:"debitAmount"`
	ReceiveAmount Amount    `json:"receiveAmount"`
	SentAmount    *Amount   `json:"sentAmount,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AccessLimits restricts what an outgoing-payment grant may debit.
type AccessLimits struct {
	DebitAmount *Amount `json:"debitAmount,omitempty"`
}

// AccessItem describes one requested access right.
type AccessItem struct {
	Type       string        `json:"type"`
	Actions    []string      `json:"actions"`
	Identifier string        `json:"identifier,omitempty"`
	Limits     *AccessLimits `json:"limits,omitempty"`
}

// AccessTokenRequest lists the access rights of a grant request.
type AccessTokenRequest struct {
	Access []AccessItem `json:"access"`
}

// InteractFinish is where the authority redirects after user interaction.
type InteractFinish struct {
	Method string `json:"method"`
	URI    string `json:"uri"`
	Nonce  string `json:"nonce"`
}

// InteractRequest asks the authority for an interactive grant.
type InteractRequest struct {
	Start  []string        `json:"start"`
	Finish *InteractFinish `json:"finish,omitempty"`
}

// GrantRequest is the GNAP grant request body.
type GrantRequest struct {
	AccessToken AccessTokenRequest `json:"access_token"`
	Client      string             `json:"client"`
	Interact    *InteractRequest   `json:"interact,omitempty"`
}

// AccessToken is a token issued by the authorization server.
type AccessToken struct {
	Value     string       `json:"value"`
	Manage    string       `json:"manage,omitempty"`
	ExpiresIn int64        `json:"expires_in,omitempty"`
	Access    []AccessItem `json:"access,omitempty"`
}

// GrantContinue holds the credentials needed to continue a grant.
type GrantContinue struct {
	URI         string      `json:"uri"`
	Wait        int64       `json:"wait,omitempty"`
	AccessToken AccessToken `json:"access_token"`
}

// GrantInteract is the interaction the user has to complete.
type GrantInteract struct {
	Redirect string `json:"redirect"`
	Finish   string `json:"finish,omitempty"`
}

// Grant is the GNAP grant response. A finalized grant carries an access token,
// a pending grant carries an interaction.
type Grant struct {
	AccessToken *AccessToken   `json:"access_token,omitempty"`
	Continue    GrantContinue  `json:"continue"`
	Interact    *GrantInteract `json:"interact,omitempty"`
}

// IsFinalized reports whether the grant carries a usable access token.
func (g *Grant) IsFinalized() bool {
	return g != nil && g.AccessToken != nil && g.AccessToken.Value != ""
}

// IsPending reports whether the grant awaits user interaction.
func (g *Grant) IsPending() bool {
	return g != nil && g.Interact != nil && g.Interact.Redirect != "" && g.Continue.URI != ""
}

// IncomingPaymentRequest creates an incoming payment.
type IncomingPaymentRequest struct {
	WalletAddress  string     `json:"walletAddress"`
	IncomingAmount *Amount    `json:"incomingAmount,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// QuoteRequest creates a quote for paying a receiver.
type QuoteRequest struct {
	WalletAddress string `json:"walletAddress"`
	Receiver      string `json:"receiver"`
	Method        string `json:"method"`
}

// OutgoingPaymentRequest creates an outgoing payment from a quote.
type OutgoingPaymentRequest struct {
	WalletAddress string `json:"walletAddress"`
	QuoteID       string `json:"quoteId"`
}
