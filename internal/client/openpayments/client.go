// Package openpayments implements a client for the Open Payments authority: wallet address resolution,
// GNAP grants and payment resources.
package openpayments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// StatusError is returned when the authority answers with a non-2xx status.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Client defines attributes of a struct available to its methods.
type Client struct {
	client        *resty.Client
	signer        *Signer
	walletAddress string
	log           *zerolog.Logger
}

// InitClient initializes a resty client signing requests as the configured wallet address.
func InitClient(cfg *config.PaymentsConfig, signer *Signer, timeout time.Duration, log *zerolog.Logger) *Client {
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	log.Info().Str("wallet_address", cfg.WalletAddress).Msg("open payments client initialized")
	return &Client{client: rc, signer: signer, walletAddress: cfg.WalletAddress, log: log}
}

// GetWalletAddress resolves the public document of a wallet address.
func (c *Client) GetWalletAddress(ctx context.Context, url string) (*modelpayments.WalletAddress, error) {
	var out modelpayments.WalletAddress
	if err := c.do(ctx, http.MethodGet, url, "", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestGrant asks authServer for a grant on behalf of the client wallet address.
func (c *Client) RequestGrant(ctx context.Context, authServer string, req modelpayments.GrantRequest) (*modelpayments.Grant, error) {
	req.Client = c.walletAddress
	var out modelpayments.Grant
	if err := c.do(ctx, http.MethodPost, authServer, "", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ContinueGrant continues a pending grant with its continuation token.
func (c *Client) ContinueGrant(ctx context.Context, continueURI, continueToken, interactRef string) (*modelpayments.Grant, error) {
	body := map[string]string{}
	if interactRef != "" {
		body["interact_ref"] = interactRef
	}
	var out modelpayments.Grant
	if err := c.do(ctx, http.MethodPost, continueURI, continueToken, body, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIncomingPayment(ctx context.Context, resourceServer, accessToken string, req modelpayments.IncomingPaymentRequest) (*modelpayments.IncomingPayment, error) {
	var out modelpayments.IncomingPayment
	if err := c.do(ctx, http.MethodPost, join(resourceServer, "incoming-payments"), accessToken, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateQuote(ctx context.Context, resourceServer, accessToken string, req modelpayments.QuoteRequest) (*modelpayments.Quote, error) {
	var out modelpayments.Quote
	if err := c.do(ctx, http.MethodPost, join(resourceServer, "quotes"), accessToken, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateOutgoingPayment(ctx context.Context, resourceServer, accessToken string, req modelpayments.OutgoingPaymentRequest) (*modelpayments.OutgoingPayment, error) {
	var out modelpayments.OutgoingPayment
	if err := c.do(ctx, http.MethodPost, join(resourceServer, "outgoing-payments"), accessToken, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, url, token string, body, result interface{}, sign bool) error {
	h := http.Header{}
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return err
		}
		h.Set("Content-Type", "application/json")
	}
	if token != "" {
		h.Set("Authorization", "GNAP "+token)
	}
	if sign && c.signer != nil {
		c.signer.Sign(method, url, h, raw)
	}
	r := c.client.R().SetContext(ctx).SetResult(result)
	for k := range h {
		r.SetHeader(k, h.Get(k))
	}
	if raw != nil {
		r.SetBody(raw)
	}
	start := time.Now()
	resp, err := r.Execute(method, url)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("url", url).Msg("open payments request failed")
		return err
	}
	c.log.Debug().Str("method", method).Str("url", url).Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).Msg("open payments request done")
	if resp.IsError() {
		return &StatusError{Method: method, URL: url, Status: resp.StatusCode(), Body: strings.TrimSpace(string(resp.Body()))}
	}
	return nil
}

func join(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + path
}
