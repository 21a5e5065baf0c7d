package openpayments_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/authoritymock"
	"github.com/danilovkiri/dk-go-donations/internal/client/openpayments"
	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv       *httptest.Server
	authority *authoritymock.Authority
	client    *openpayments.Client
}

func newFixture(t *testing.T, signingKey ed25519.PrivateKey, trusted ed25519.PublicKey) *fixture {
	t.Helper()
	log := zerolog.Nop()
	authority := authoritymock.New(authoritymock.Options{PublicKey: trusted}, &log)
	srv := httptest.NewServer(authority.Router())
	t.Cleanup(srv.Close)
	cfg := &config.PaymentsConfig{WalletAddress: srv.URL + "/wallets/platform"}
	client := openpayments.InitClient(cfg, openpayments.NewSigner(signingKey, "key-1"), 5*time.Second, &log)
	return &fixture{srv: srv, authority: authority, client: client}
}

func generateKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func TestPaymentFlow(t *testing.T) {
	pub, priv := generateKey(t)
	f := newFixture(t, priv, pub)
	ctx := context.Background()

	sender, err := f.client.GetWalletAddress(ctx, f.srv.URL+"/wallets/alice")
	require.NoError(t, err)
	receiver, err := f.client.GetWalletAddress(ctx, f.srv.URL+"/wallets/bob")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/auth", receiver.AuthServer)
	assert.Equal(t, int32(2), receiver.AssetScale)

	inGrant, err := f.client.RequestGrant(ctx, receiver.AuthServer, modelpayments.GrantRequest{
		AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{Type: modelpayments.AccessIncomingPayment, Actions: []string{"create"}}}},
	})
	require.NoError(t, err)
	require.True(t, inGrant.IsFinalized())

	incoming, err := f.client.CreateIncomingPayment(ctx, receiver.ResourceServer, inGrant.AccessToken.Value, modelpayments.IncomingPaymentRequest{
		WalletAddress:  receiver.ID,
		IncomingAmount: &modelpayments.Amount{Value: "1050", AssetCode: receiver.AssetCode, AssetScale: receiver.AssetScale},
	})
	require.NoError(t, err)

	quoteGrant, err := f.client.RequestGrant(ctx, sender.AuthServer, modelpayments.GrantRequest{
		AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{Type: modelpayments.AccessQuote, Actions: []string{"create", "read"}}}},
	})
	require.NoError(t, err)
	quote, err := f.client.CreateQuote(ctx, sender.ResourceServer, quoteGrant.AccessToken.Value, modelpayments.QuoteRequest{
		WalletAddress: sender.ID, Receiver: incoming.ID, Method: "ilp",
	})
	require.NoError(t, err)
	assert.Equal(t, "1050", quote.DebitAmount.Value)

	outGrant, err := f.client.RequestGrant(ctx, sender.AuthServer, modelpayments.GrantRequest{
		AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{
			Type: modelpayments.AccessOutgoingPayment, Actions: []string{"create", "read"}, Identifier: sender.ID,
			Limits: &modelpayments.AccessLimits{DebitAmount: &quote.DebitAmount},
		}}},
		Interact: &modelpayments.InteractRequest{Start: []string{"redirect"}},
	})
	require.NoError(t, err)
	require.True(t, outGrant.IsPending())

	early, err := f.client.ContinueGrant(ctx, outGrant.Continue.URI, outGrant.Continue.AccessToken.Value, "")
	require.NoError(t, err)
	assert.False(t, early.IsFinalized())
	assert.NotEqual(t, outGrant.Continue.AccessToken.Value, early.Continue.AccessToken.Value)

	resp, err := http.Get(outGrant.Interact.Redirect)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = f.client.ContinueGrant(ctx, outGrant.Continue.URI, outGrant.Continue.AccessToken.Value, "")
	assert.Error(t, err)

	finalized, err := f.client.ContinueGrant(ctx, early.Continue.URI, early.Continue.AccessToken.Value, "")
	require.NoError(t, err)
	require.True(t, finalized.IsFinalized())

	payment, err := f.client.CreateOutgoingPayment(ctx, sender.ResourceServer, finalized.AccessToken.Value, modelpayments.OutgoingPaymentRequest{
		WalletAddress: sender.ID, QuoteID: quote.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, quote.ID, payment.QuoteID)
	assert.Equal(t, 1, f.authority.OutgoingPayments())
}

func TestRejectsUntrustedSignature(t *testing.T) {
	trusted, _ := generateKey(t)
	_, other := generateKey(t)
	f := newFixture(t, other, trusted)

	_, err := f.client.RequestGrant(context.Background(), f.srv.URL+"/auth", modelpayments.GrantRequest{
		AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{Type: modelpayments.AccessQuote, Actions: []string{"create"}}}},
	})
	var statusErr *openpayments.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
}

func TestResourceRequiresAccessToken(t *testing.T) {
	pub, priv := generateKey(t)
	f := newFixture(t, priv, pub)

	_, err := f.client.CreateQuote(context.Background(), f.srv.URL+"/rs", "bogus", modelpayments.QuoteRequest{Receiver: "x"})
	var statusErr *openpayments.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
}
