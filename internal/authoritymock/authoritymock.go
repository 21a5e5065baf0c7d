// Package authoritymock emulates an Open Payments authority for local development and tests.
package authoritymock

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/client/openpayments"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options configure the mock.
type Options struct {
	// BaseURL overrides the scheme and host derived from incoming requests.
	BaseURL    string
	AssetCode  string
	AssetScale int32
	// Wallets restricts the served wallet names. Empty serves any name.
	Wallets []string
	// AutoApprove approves interactive grants as soon as they are issued.
	AutoApprove bool
	// PublicKey verifies request signatures. Without it only their presence is checked.
	PublicKey ed25519.PublicKey
	// FailPercent makes the given share of resource server calls fail with 500.
	FailPercent int
}

type grant struct {
	id            string
	access        []modelpayments.AccessItem
	continueToken string
	interactive   bool
	approved      bool
}

// Authority is an in-memory authorization and resource server.
type Authority struct {
	mu       sync.Mutex
	opts     Options
	grants   map[string]*grant
	tokens   map[string][]modelpayments.AccessItem
	incoming map[string]*modelpayments.IncomingPayment
	quotes   map[string]*modelpayments.Quote
	outgoing map[string]*modelpayments.OutgoingPayment
	log      *zerolog.Logger
}

// New creates a mock authority.
func New(opts Options, log *zerolog.Logger) *Authority {
	if opts.AssetCode == "" {
		opts.AssetCode = "USD"
	}
	if opts.AssetScale == 0 {
		opts.AssetScale = 2
	}
	return &Authority{
		opts:     opts,
		grants:   make(map[string]*grant),
		tokens:   make(map[string][]modelpayments.AccessItem),
		incoming: make(map[string]*modelpayments.IncomingPayment),
		quotes:   make(map[string]*modelpayments.Quote),
		outgoing: make(map[string]*modelpayments.OutgoingPayment),
		log:      log,
	}
}

// Router returns the HTTP surface of the mock.
func (a *Authority) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/wallets/{name}", a.handleWallet)
	r.Post("/auth", a.handleGrant)
	r.Post("/auth/", a.handleGrant)
	r.Post("/auth/continue/{id}", a.handleContinue)
	r.Get("/interact/{id}", a.handleInteract)
	r.Route("/rs", func(r chi.Router) {
		r.Post("/incoming-payments", a.handleIncomingPayment)
		r.Post("/quotes", a.handleQuote)
		r.Post("/outgoing-payments", a.handleOutgoingPayment)
	})
	return r
}

// Approve approves a pending interactive grant by id.
func (a *Authority) Approve(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.grants[id]
	if !ok {
		return fmt.Errorf("grant %s not found", id)
	}
	g.approved = true
	return nil
}

// OutgoingPayments returns the number of outgoing payments created so far.
func (a *Authority) OutgoingPayments() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outgoing)
}

func (a *Authority) base(r *http.Request) string {
	if a.opts.BaseURL != "" {
		return strings.TrimSuffix(a.opts.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (a *Authority) handleWallet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if len(a.opts.Wallets) > 0 && !contains(a.opts.Wallets, name) {
		writeError(w, http.StatusNotFound, "wallet address not found")
		return
	}
	base := a.base(r)
	writeJSON(w, http.StatusOK, modelpayments.WalletAddress{
		ID:             base + "/wallets/" + name,
		PublicName:     name,
		AssetCode:      a.opts.AssetCode,
		AssetScale:     a.opts.AssetScale,
		AuthServer:     base + "/auth",
		ResourceServer: base + "/rs",
	})
}

func (a *Authority) handleGrant(w http.ResponseWriter, r *http.Request) {
	body, ok := a.readSigned(w, r)
	if !ok {
		return
	}
	var req modelpayments.GrantRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.AccessToken.Access) == 0 || req.Client == "" {
		writeError(w, http.StatusBadRequest, "invalid grant request")
		return
	}
	interactive := false
	for _, item := range req.AccessToken.Access {
		if item.Type == modelpayments.AccessOutgoingPayment {
			interactive = true
		}
	}
	if interactive && (req.Interact == nil || !contains(req.Interact.Start, "redirect")) {
		writeError(w, http.StatusBadRequest, "outgoing payment grants require redirect interaction")
		return
	}
	g := &grant{
		id:            uuid.NewString(),
		access:        req.AccessToken.Access,
		continueToken: uuid.NewString(),
		interactive:   interactive,
		approved:      !interactive || a.opts.AutoApprove,
	}
	base := a.base(r)
	a.mu.Lock()
	a.grants[g.id] = g
	resp := modelpayments.Grant{Continue: a.continuation(base, g)}
	if interactive {
		resp.Interact = &modelpayments.GrantInteract{Redirect: base + "/interact/" + g.id, Finish: uuid.NewString()}
	} else {
		resp.AccessToken = a.issue(base, g)
	}
	a.mu.Unlock()
	a.log.Info().Str("grant_id", g.id).Bool("interactive", interactive).Msg("grant requested")
	writeJSON(w, http.StatusOK, resp)
}

func (a *Authority) handleContinue(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.readSigned(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.grants[id]
	if !ok {
		writeError(w, http.StatusNotFound, "grant not found")
		return
	}
	if gnapToken(r) != g.continueToken {
		writeError(w, http.StatusUnauthorized, "invalid continuation token")
		return
	}
	// each continuation invalidates the token it was made with
	g.continueToken = uuid.NewString()
	base := a.base(r)
	resp := modelpayments.Grant{Continue: a.continuation(base, g)}
	if g.approved {
		resp.AccessToken = a.issue(base, g)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Authority) handleInteract(w http.ResponseWriter, r *http.Request) {
	if err := a.Approve(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"approved": true})
}

func (a *Authority) handleIncomingPayment(w http.ResponseWriter, r *http.Request) {
	var req modelpayments.IncomingPaymentRequest
	if !a.authorize(w, r, modelpayments.AccessIncomingPayment, &req) {
		return
	}
	if req.WalletAddress == "" || req.IncomingAmount == nil {
		writeError(w, http.StatusBadRequest, "walletAddress and incomingAmount are required")
		return
	}
	if _, err := decimal.NewFromString(req.IncomingAmount.Value); err != nil {
		writeError(w, http.StatusBadRequest, "invalid incoming amount")
		return
	}
	expires := time.Now().Add(24 * time.Hour).UTC()
	p := &modelpayments.IncomingPayment{
		ID:             a.base(r) + "/rs/incoming-payments/" + uuid.NewString(),
		WalletAddress:  req.WalletAddress,
		IncomingAmount: req.IncomingAmount,
		ReceivedAmount: &modelpayments.Amount{Value: "0", AssetCode: req.IncomingAmount.AssetCode, AssetScale: req.IncomingAmount.AssetScale},
		ExpiresAt:      &expires,
		CreatedAt:      time.Now().UTC(),
	}
	a.mu.Lock()
	a.incoming[p.ID] = p
	a.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (a *Authority) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req modelpayments.QuoteRequest
	if !a.authorize(w, r, modelpayments.AccessQuote, &req) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	in, ok := a.incoming[req.Receiver]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown receiver")
		return
	}
	expires := time.Now().Add(5 * time.Minute).UTC()
	amount := *in.IncomingAmount
	q := &modelpayments.Quote{
		ID:            a.base(r) + "/rs/quotes/" + uuid.NewString(),
		WalletAddress: req.WalletAddress,
		Receiver:      req.Receiver,
		DebitAmount:   modelpayments.Amount{Value: amount.Value, AssetCode: a.opts.AssetCode, AssetScale: a.opts.AssetScale},
		ReceiveAmount: amount,
		Method:        req.Method,
		ExpiresAt:     &expires,
		CreatedAt:     time.Now().UTC(),
	}
	a.quotes[q.ID] = q
	writeJSON(w, http.StatusCreated, q)
}

func (a *Authority) handleOutgoingPayment(w http.ResponseWriter, r *http.Request) {
	var req modelpayments.OutgoingPaymentRequest
	if !a.authorize(w, r, modelpayments.AccessOutgoingPayment, &req) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	q, ok := a.quotes[req.QuoteID]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown quote")
		return
	}
	if q.ExpiresAt != nil && time.Now().After(*q.ExpiresAt) {
		writeError(w, http.StatusBadRequest, "quote expired")
		return
	}
	if !withinLimit(a.tokens[gnapToken(r)], q.DebitAmount) {
		writeError(w, http.StatusForbidden, "debit amount exceeds grant limit")
		return
	}
	p := &modelpayments.OutgoingPayment{
		ID:            a.base(r) + "/rs/outgoing-payments/" + uuid.NewString(),
		WalletAddress: req.WalletAddress,
		QuoteID:       q.ID,
		DebitAmount:   q.DebitAmount,
		ReceiveAmount: q.ReceiveAmount,
		SentAmount:    &q.DebitAmount,
		CreatedAt:     time.Now().UTC(),
	}
	if in, ok := a.incoming[q.Receiver]; ok {
		received := q.ReceiveAmount
		in.ReceivedAmount = &received
		in.Completed = true
	}
	a.outgoing[p.ID] = p
	writeJSON(w, http.StatusCreated, p)
}

// continuation must be called with mu held.
func (a *Authority) continuation(base string, g *grant) modelpayments.GrantContinue {
	return modelpayments.GrantContinue{
		URI:         base + "/auth/continue/" + g.id,
		Wait:        5,
		AccessToken: modelpayments.AccessToken{Value: g.continueToken},
	}
}

// issue must be called with mu held.
func (a *Authority) issue(base string, g *grant) *modelpayments.AccessToken {
	token := uuid.NewString()
	a.tokens[token] = g.access
	return &modelpayments.AccessToken{
		Value:     token,
		Manage:    base + "/auth/token/" + g.id,
		ExpiresIn: 600,
		Access:    g.access,
	}
}

func (a *Authority) readSigned(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	target := a.base(r) + r.URL.RequestURI()
	if err = openpayments.VerifyRequest(r, target, body, a.opts.PublicKey); err != nil {
		a.log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected unsigned request")
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return nil, false
	}
	return body, true
}

func (a *Authority) authorize(w http.ResponseWriter, r *http.Request, accessType string, dst interface{}) bool {
	body, ok := a.readSigned(w, r)
	if !ok {
		return false
	}
	if a.opts.FailPercent > 0 && a.opts.FailPercent > rand.Intn(100) {
		a.log.Info().Str("path", r.URL.Path).Msg("responding with error 500")
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	a.mu.Lock()
	access, found := a.tokens[gnapToken(r)]
	a.mu.Unlock()
	if !found || !grants(access, accessType) {
		writeError(w, http.StatusUnauthorized, "invalid access token")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}

func grants(access []modelpayments.AccessItem, accessType string) bool {
	for _, item := range access {
		if item.Type == accessType {
			return true
		}
	}
	return false
}

func withinLimit(access []modelpayments.AccessItem, debit modelpayments.Amount) bool {
	want, err := decimal.NewFromString(debit.Value)
	if err != nil {
		return false
	}
	for _, item := range access {
		if item.Type != modelpayments.AccessOutgoingPayment {
			continue
		}
		if item.Limits == nil || item.Limits.DebitAmount == nil {
			return true
		}
		limit, err := decimal.NewFromString(item.Limits.DebitAmount.Value)
		if err != nil {
			return false
		}
		return want.LessThanOrEqual(limit)
	}
	return false
}

func gnapToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "GNAP ")
	return token
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
