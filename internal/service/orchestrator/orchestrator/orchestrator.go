package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelqueue"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstate"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/validation"
	"github.com/danilovkiri/dk-go-donations/internal/storage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	idAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 9
	failureTimeout = 5 * time.Second
)

var minAmount = decimal.New(1, -2)

// Ledger amounts are NUMERIC(18, 2).
const (
	amountScale        = 2
	maxAmountIntDigits = 16
)

// PaymentAuthority is the Open Payments surface the flow needs.
type PaymentAuthority interface {
	GetWalletAddress(ctx context.Context, url string) (*modelpayments.WalletAddress, error)
	RequestGrant(ctx context.Context, authServer string, req modelpayments.GrantRequest) (*modelpayments.Grant, error)
	ContinueGrant(ctx context.Context, continueURI, continueToken, interactRef string) (*modelpayments.Grant, error)
	CreateIncomingPayment(ctx context.Context, resourceServer, accessToken string, req modelpayments.IncomingPaymentRequest) (*modelpayments.IncomingPayment, error)
	CreateQuote(ctx context.Context, resourceServer, accessToken string, req modelpayments.QuoteRequest) (*modelpayments.Quote, error)
	CreateOutgoingPayment(ctx context.Context, resourceServer, accessToken string, req modelpayments.OutgoingPaymentRequest) (*modelpayments.OutgoingPayment, error)
}

// EventPublisher accepts donation lifecycle events.
type EventPublisher interface {
	Publish(event modelqueue.DonationEvent)
}

// Metrics records the progress of the flow.
type Metrics interface {
	Transition(status string)
	Failure(operation string)
	AuthorityCall(operation string, d time.Duration, err error)
}

type Orchestrator struct {
	storage   storage.Storage
	states    storage.States
	authority PaymentAuthority
	events    EventPublisher
	metrics   Metrics
	validate  *validation.Validator
	newSuffix func() string
	now       func() time.Time
	log       *zerolog.Logger
}

func InitOrchestrator(st storage.Storage, states storage.States, authority PaymentAuthority, events EventPublisher, metrics Metrics, log *zerolog.Logger) (*Orchestrator, error) {
	switch {
	case st == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to orchestrator initializer"}
	case states == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil state store was passed to orchestrator initializer"}
	case authority == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil payment authority was passed to orchestrator initializer"}
	case events == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil event publisher was passed to orchestrator initializer"}
	case metrics == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil metrics were passed to orchestrator initializer"}
	case log == nil:
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil logger was passed to orchestrator initializer"}
	}
	suffix, err := nanoid.CustomASCII(idAlphabet, idSuffixLength)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		storage:   st,
		states:    states,
		authority: authority,
		events:    events,
		metrics:   metrics,
		validate:  validation.New(),
		newSuffix: suffix,
		now:       time.Now,
		log:       log,
	}, nil
}

// newTransactionID returns "<unix millis>-<9 chars of [0-9a-z]>".
func (o *Orchestrator) newTransactionID() string {
	return fmt.Sprintf("%d-%s", o.now().UnixMilli(), o.newSuffix())
}

// Initiate validates the request, creates the incoming payment at the recipient's wallet
// and records the donation as pending.
func (o *Orchestrator) Initiate(ctx context.Context, donorID string, req modeldto.InitiateDonationRequest) (*modeldto.InitiateDonationResponse, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, err
	}
	if err := checkAmount(*req.Amount); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(req.Currency)
	if req.RecipientID == donorID {
		return nil, &serviceErrors.BadRequestError{Msg: "you cannot donate to yourself"}
	}

	recipient, err := o.storage.GetUserByID(ctx, req.RecipientID)
	if err != nil {
		return nil, notFound(err, "recipient not found")
	}
	if !recipient.IsActive {
		return nil, &serviceErrors.NotFoundError{Msg: "recipient not found"}
	}
	if !recipient.AllowDonations {
		return nil, &serviceErrors.BadRequestError{Msg: "recipient does not accept donations"}
	}

	var donorWallet, recipientWallet *modelstorage.WalletStorageEntry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		donorWallet, err = o.storage.GetPrimaryWallet(gctx, donorID)
		return missingWallet(err, "you do not have a wallet configured")
	})
	g.Go(func() (err error) {
		recipientWallet, err = o.storage.GetPrimaryWallet(gctx, req.RecipientID)
		return missingWallet(err, "recipient does not have a wallet configured")
	})
	if err = g.Wait(); err != nil {
		return nil, err
	}

	var receiving *modelpayments.WalletAddress
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		_, err = o.walletAddress(gctx, donorWallet.WalletAddress)
		return err
	})
	g.Go(func() (err error) {
		receiving, err = o.walletAddress(gctx, recipientWallet.WalletAddress)
		return err
	})
	if err = g.Wait(); err != nil {
		return nil, o.abort("resolve wallet addresses", err)
	}

	var grant *modelpayments.Grant
	err = o.call("incoming payment grant", func() (err error) {
		grant, err = o.authority.RequestGrant(ctx, receiving.AuthServer, modelpayments.GrantRequest{
			AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{
				Type:    modelpayments.AccessIncomingPayment,
				Actions: []string{"create", "read", "complete"},
			}}},
		})
		return err
	})
	if err != nil {
		return nil, o.abort("incoming payment grant", err)
	}
	if !grant.IsFinalized() {
		return nil, o.abort("incoming payment grant", errors.New("grant was not finalized"))
	}

	var incoming *modelpayments.IncomingPayment
	err = o.call("create incoming payment", func() (err error) {
		incoming, err = o.authority.CreateIncomingPayment(ctx, receiving.ResourceServer, grant.AccessToken.Value, modelpayments.IncomingPaymentRequest{
			WalletAddress: receiving.ID,
			IncomingAmount: &modelpayments.Amount{
				Value:      MinorUnits(*req.Amount, receiving.AssetScale),
				AssetCode:  receiving.AssetCode,
				AssetScale: receiving.AssetScale,
			},
		})
		return err
	})
	if err != nil {
		return nil, o.abort("create incoming payment", err)
	}

	transactionID := o.newTransactionID()
	state, err := o.states.CreateState(ctx, modelstate.DonationState{
		TransactionID:   transactionID,
		InitiatorID:     donorID,
		IncomingPayment: incoming,
		Status:          modelstate.StatusInitiated,
	})
	if err != nil {
		return nil, err
	}
	var donor *string
	if !req.IsAnonymous {
		donor = &donorID
	}
	donation, err := o.storage.AddDonation(ctx, modelstorage.DonationStorageEntry{
		TransactionID:     transactionID,
		DonorID:           donor,
		RecipientID:       req.RecipientID,
		Amount:            *req.Amount,
		Currency:          currency,
		WalletAddressFrom: donorWallet.WalletAddress,
		WalletAddressTo:   recipientWallet.WalletAddress,
		Status:            modelstorage.DonationPending,
		IsAnonymous:       req.IsAnonymous,
		Message:           req.Message,
	})
	if err != nil {
		o.markFailed(ctx, state, "record donation", err)
		return nil, err
	}

	o.advanced(state, modelqueue.EventInitiated, func(e *modelqueue.DonationEvent) {
		e.RecipientID = req.RecipientID
		e.Amount = donation.Amount.String()
		e.Currency = currency
	})
	return &modeldto.InitiateDonationResponse{
		Success:            true,
		DonationID:         transactionID,
		Donation:           donation,
		IncomingPaymentURL: incoming.ID,
		NextStep:           "create_quote",
	}, nil
}

// CreateQuote prices the transfer from the donor's wallet to the incoming payment.
func (o *Orchestrator) CreateQuote(ctx context.Context, userID, donationID string) (*modeldto.CreateQuoteResponse, error) {
	state, err := o.ownedState(ctx, userID, donationID)
	if err != nil {
		return nil, err
	}
	if state.Status == modelstate.StatusFailed {
		return nil, &serviceErrors.BadStateError{Msg: "donation has failed"}
	}
	if !state.CanQuote() || state.IncomingPayment == nil {
		return nil, &serviceErrors.BadStateError{Msg: "donation is not awaiting a quote"}
	}
	donation, err := o.storage.GetDonation(ctx, donationID)
	if err != nil {
		return nil, notFound(err, "donation not found")
	}

	sending, err := o.walletAddress(ctx, donation.WalletAddressFrom)
	if err != nil {
		return nil, o.markFailed(ctx, state, "resolve wallet addresses", err)
	}
	var grant *modelpayments.Grant
	err = o.call("quote grant", func() (err error) {
		grant, err = o.authority.RequestGrant(ctx, sending.AuthServer, modelpayments.GrantRequest{
			AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{
				Type:    modelpayments.AccessQuote,
				Actions: []string{"create", "read"},
			}}},
		})
		return err
	})
	if err == nil && !grant.IsFinalized() {
		err = errors.New("grant was not finalized")
	}
	if err != nil {
		return nil, o.markFailed(ctx, state, "quote grant", err)
	}

	var quote *modelpayments.Quote
	err = o.call("create quote", func() (err error) {
		quote, err = o.authority.CreateQuote(ctx, sending.ResourceServer, grant.AccessToken.Value, modelpayments.QuoteRequest{
			WalletAddress: sending.ID,
			Receiver:      state.IncomingPayment.ID,
			Method:        "ilp",
		})
		return err
	})
	if err != nil {
		return nil, o.markFailed(ctx, state, "create quote", err)
	}

	state.Quote = quote
	state.Status = modelstate.StatusQuoteCreated
	if state, err = o.states.UpdateState(ctx, *state); err != nil {
		return nil, err
	}
	o.advanced(state, modelqueue.EventQuoted, nil)
	return &modeldto.CreateQuoteResponse{
		Success: true,
		Quote: modeldto.QuoteSummary{
			ID:            quote.ID,
			DebitAmount:   quote.DebitAmount,
			ReceiveAmount: quote.ReceiveAmount,
			ExpiresAt:     quote.ExpiresAt,
		},
		NextStep: "request_outgoing_grant",
	}, nil
}

// RequestGrant asks the donor's authorization server for an interactive grant capped at the quoted debit amount.
func (o *Orchestrator) RequestGrant(ctx context.Context, userID, donationID string) (*modeldto.RequestGrantResponse, error) {
	state, err := o.ownedState(ctx, userID, donationID)
	if err != nil {
		return nil, err
	}
	if state.Status == modelstate.StatusFailed {
		return nil, &serviceErrors.BadStateError{Msg: "donation has failed"}
	}
	if state.Quote == nil {
		return nil, &serviceErrors.NotFoundError{Msg: "quote not found"}
	}
	if !state.CanRequestGrant() {
		return nil, &serviceErrors.BadStateError{Msg: "donation is not awaiting authorization"}
	}
	donation, err := o.storage.GetDonation(ctx, donationID)
	if err != nil {
		return nil, notFound(err, "donation not found")
	}

	sending, err := o.walletAddress(ctx, donation.WalletAddressFrom)
	if err != nil {
		return nil, o.markFailed(ctx, state, "resolve wallet addresses", err)
	}
	debit := state.Quote.DebitAmount
	var grant *modelpayments.Grant
	err = o.call("outgoing payment grant", func() (err error) {
		grant, err = o.authority.RequestGrant(ctx, sending.AuthServer, modelpayments.GrantRequest{
			AccessToken: modelpayments.AccessTokenRequest{Access: []modelpayments.AccessItem{{
				Type:       modelpayments.AccessOutgoingPayment,
				Actions:    []string{"create", "read", "list"},
				Identifier: sending.ID,
				Limits:     &modelpayments.AccessLimits{DebitAmount: &debit},
			}}},
			Interact: &modelpayments.InteractRequest{Start: []string{"redirect"}},
		})
		return err
	})
	if err == nil && !grant.IsPending() {
		err = errors.New("expected an interactive grant")
	}
	if err != nil {
		return nil, o.markFailed(ctx, state, "outgoing payment grant", err)
	}

	state.ContinueURI = grant.Continue.URI
	state.ContinueToken = grant.Continue.AccessToken.Value
	state.InteractionURL = grant.Interact.Redirect
	state.Status = modelstate.StatusGrantPending
	if state, err = o.states.UpdateState(ctx, *state); err != nil {
		return nil, err
	}
	o.advanced(state, modelqueue.EventGrantPending, nil)
	return &modeldto.RequestGrantResponse{
		Success:            true,
		RequiresUserAction: true,
		InteractionURL:     grant.Interact.Redirect,
		Message:            "please authorize the payment at the interaction URL",
		NextStep:           "complete_donation",
	}, nil
}

// Complete continues the authorized grant and sends the outgoing payment.
func (o *Orchestrator) Complete(ctx context.Context, userID, donationID, interactRef string) (*modeldto.CompleteDonationResponse, error) {
	state, err := o.ownedState(ctx, userID, donationID)
	if err != nil {
		var missing *serviceErrors.StateNotFoundError
		if errors.As(err, &missing) {
			return nil, &serviceErrors.BadStateError{Msg: "donation is not pending authorization"}
		}
		return nil, err
	}
	if !state.CanComplete() {
		return nil, &serviceErrors.BadStateError{Msg: "donation is not pending authorization"}
	}
	donation, err := o.storage.GetDonation(ctx, donationID)
	if err != nil {
		return nil, notFound(err, "donation not found")
	}

	var grant *modelpayments.Grant
	err = o.call("continue grant", func() (err error) {
		grant, err = o.authority.ContinueGrant(ctx, state.ContinueURI, state.ContinueToken, interactRef)
		return err
	})
	if err != nil {
		return nil, o.markFailed(ctx, state, "continue grant", err)
	}
	if !grant.IsFinalized() {
		if grant.Continue.URI != "" {
			state.ContinueURI = grant.Continue.URI
			state.ContinueToken = grant.Continue.AccessToken.Value
			if _, err = o.states.UpdateState(ctx, *state); err != nil {
				return nil, err
			}
		}
		return nil, &serviceErrors.BadStateError{Msg: "grant has not been authorized yet"}
	}

	// Claim the state before paying so that a concurrent completion loses the race.
	state.Status = modelstate.StatusCompleted
	if state, err = o.states.UpdateState(ctx, *state); err != nil {
		return nil, err
	}

	sending, err := o.walletAddress(ctx, donation.WalletAddressFrom)
	if err != nil {
		return nil, o.markFailed(ctx, state, "resolve wallet addresses", err)
	}
	var payment *modelpayments.OutgoingPayment
	err = o.call("create outgoing payment", func() (err error) {
		payment, err = o.authority.CreateOutgoingPayment(ctx, sending.ResourceServer, grant.AccessToken.Value, modelpayments.OutgoingPaymentRequest{
			WalletAddress: sending.ID,
			QuoteID:       state.Quote.ID,
		})
		return err
	})
	if err != nil {
		return nil, o.markFailed(ctx, state, "create outgoing payment", err)
	}

	if err = o.storage.UpdateDonationStatus(ctx, donationID, modelstorage.DonationCompleted); err != nil {
		o.log.Error().Err(err).Str("transaction_id", donationID).Str("outgoing_payment", payment.ID).
			Msg("outgoing payment was sent but the ledger could not be updated")
		return nil, err
	}
	if err = o.states.DeleteState(ctx, donationID, state.Version); err != nil {
		o.log.Warn().Err(err).Str("transaction_id", donationID).Msg("deleting donation state failed")
	}
	o.advanced(state, modelqueue.EventCompleted, nil)
	return &modeldto.CompleteDonationResponse{
		Success: true,
		Message: "donation completed",
		OutgoingPayment: modeldto.OutgoingPaymentSummary{
			ID:            payment.ID,
			DebitAmount:   payment.DebitAmount,
			ReceiveAmount: payment.ReceiveAmount,
			CreatedAt:     payment.CreatedAt,
		},
	}, nil
}

// WalletInfo returns a registered wallet with its resolved wallet address document.
func (o *Orchestrator) WalletInfo(ctx context.Context, walletID string) (*modeldto.WalletInfoResponse, error) {
	if err := o.validate.Var("walletId", walletID, "uuid"); err != nil {
		return nil, err
	}
	wallet, err := o.storage.GetWallet(ctx, walletID)
	if err != nil {
		return nil, notFound(err, "wallet not found")
	}
	info, err := o.walletAddress(ctx, wallet.WalletAddress)
	if err != nil {
		return nil, &serviceErrors.AuthorityError{Op: "resolve wallet address", Err: err}
	}
	return &modeldto.WalletInfoResponse{Wallet: modeldto.WalletInfo{WalletStorageEntry: *wallet, WalletAddressInfo: info}}, nil
}

// checkAmount bounds precision and magnitude before anything rescales the value.
func checkAmount(amount decimal.Decimal) error {
	exp := int64(amount.Exponent())
	if exp < -amountScale {
		return serviceErrors.NewValidationError("amount", "must have at most 2 decimal places")
	}
	if exp > maxAmountIntDigits || int64(amount.NumDigits())+exp > maxAmountIntDigits {
		return serviceErrors.NewValidationError("amount", "is too large")
	}
	if amount.LessThan(minAmount) {
		return serviceErrors.NewValidationError("amount", "must be at least 0.01")
	}
	return nil
}

// MinorUnits converts amount to an integer string at the given asset scale, rounding half away from zero.
func MinorUnits(amount decimal.Decimal, scale int32) string {
	return amount.Shift(scale).Round(0).String()
}

func (o *Orchestrator) walletAddress(ctx context.Context, url string) (wa *modelpayments.WalletAddress, err error) {
	err = o.call("get wallet address", func() error {
		wa, err = o.authority.GetWalletAddress(ctx, url)
		return err
	})
	return wa, err
}

func (o *Orchestrator) call(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.AuthorityCall(op, time.Since(start), err)
	return err
}

func (o *Orchestrator) ownedState(ctx context.Context, userID, donationID string) (*modelstate.DonationState, error) {
	state, err := o.states.GetState(ctx, donationID)
	if err != nil {
		var nf *storageErrors.NotFoundError
		if errors.As(err, &nf) {
			return nil, &serviceErrors.StateNotFoundError{ID: donationID}
		}
		return nil, err
	}
	if state.InitiatorID != userID {
		return nil, &serviceErrors.ForbiddenError{Msg: "donation was initiated by another user"}
	}
	return state, nil
}

// abort reports a failure that happened before any donation state existed.
func (o *Orchestrator) abort(op string, cause error) error {
	o.log.Error().Err(cause).Str("operation", op).Msg("initiating donation failed")
	o.metrics.Failure(op)
	return &serviceErrors.AuthorityError{Op: op, Err: cause}
}

// markFailed moves the state and the ledger row to failed and returns the error to report.
func (o *Orchestrator) markFailed(ctx context.Context, state *modelstate.DonationState, op string, cause error) error {
	o.log.Error().Err(cause).Str("transaction_id", state.TransactionID).Str("operation", op).Msg("donation step failed")
	o.metrics.Failure(op)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureTimeout)
	defer cancel()
	failed := *state
	failed.Status = modelstate.StatusFailed
	if _, err := o.states.UpdateState(ctx, failed); err != nil {
		o.log.Warn().Err(err).Str("transaction_id", state.TransactionID).Msg("marking donation state failed failed")
	}
	if err := o.storage.UpdateDonationStatus(ctx, state.TransactionID, modelstorage.DonationFailed); err != nil {
		o.log.Warn().Err(err).Str("transaction_id", state.TransactionID).Msg("marking donation failed in ledger failed")
	}
	o.metrics.Transition(string(modelstate.StatusFailed))
	o.events.Publish(modelqueue.DonationEvent{
		Type:          modelqueue.EventFailed,
		TransactionID: state.TransactionID,
		InitiatorID:   state.InitiatorID,
		Status:        string(modelstate.StatusFailed),
		Reason:        op,
		OccurredAt:    o.now().UTC(),
	})
	var authErr *serviceErrors.AuthorityError
	if errors.As(cause, &authErr) {
		return cause
	}
	var storageTimeout *storageErrors.ContextTimeoutExceededError
	if errors.As(cause, &storageTimeout) {
		return cause
	}
	return &serviceErrors.AuthorityError{Op: op, Err: cause}
}

func (o *Orchestrator) advanced(state *modelstate.DonationState, eventType string, fill func(*modelqueue.DonationEvent)) {
	o.metrics.Transition(string(state.Status))
	event := modelqueue.DonationEvent{
		Type:          eventType,
		TransactionID: state.TransactionID,
		InitiatorID:   state.InitiatorID,
		Status:        string(state.Status),
		OccurredAt:    o.now().UTC(),
	}
	if fill != nil {
		fill(&event)
	}
	o.events.Publish(event)
	o.log.Info().Str("transaction_id", state.TransactionID).Str("status", event.Status).Msg("donation advanced")
}

func notFound(err error, msg string) error {
	var nf *storageErrors.NotFoundError
	if errors.As(err, &nf) {
		return &serviceErrors.NotFoundError{Msg: msg}
	}
	return err
}

func missingWallet(err error, msg string) error {
	var nf *storageErrors.NotFoundError
	if errors.As(err, &nf) {
		return &serviceErrors.BadRequestError{Msg: msg}
	}
	return err
}
