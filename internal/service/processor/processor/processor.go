package processor

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/service/validation"
	"github.com/danilovkiri/dk-go-donations/internal/storage"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SearchLimit caps profile search results.
const SearchLimit = 20

type Processor struct {
	storage   storage.Storage
	secretary secretary.Secretary
	validate  *validation.Validator
	// dummyHash is compared against when the email is unknown so that every login pays for bcrypt.
	dummyHash string
	log       *zerolog.Logger
}

func InitService(st storage.Storage, sec secretary.Secretary, log *zerolog.Logger) (*Processor, error) {
	if st == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil storage was passed to service initializer"}
	}
	if sec == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil secretary was passed to service initializer"}
	}
	if log == nil {
		return nil, &serviceErrors.ServiceFoundNilArgument{Msg: "nil logger was passed to service initializer"}
	}
	dummyHash, err := sec.HashPassword(uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &Processor{
		storage:   st,
		secretary: sec,
		validate:  validation.New(),
		dummyHash: dummyHash,
		log:       log,
	}, nil
}

// Register creates an account and signs the user in.
func (proc *Processor) Register(ctx context.Context, req modeldto.RegisterRequest) (*modelstorage.UserStorageEntry, *http.Cookie, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := proc.validate.Struct(req); err != nil {
		return nil, nil, err
	}
	if req.UserType == "" {
		req.UserType = modelstorage.UserTypeIndividual
	}
	hash, err := proc.secretary.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}
	user, err := proc.storage.AddNewUser(ctx, modelstorage.UserStorageEntry{
		ID:               uuid.NewString(),
		Username:         req.Username,
		Email:            req.Email,
		PasswordHash:     hash,
		UserType:         req.UserType,
		DisplayName:      req.DisplayName,
		OrganizationType: req.OrganizationType,
	})
	if err != nil {
		return nil, nil, err
	}
	cookie, err := proc.sessionFor(user, req.Remember)
	if err != nil {
		return nil, nil, err
	}
	return user, cookie, nil
}

// Login checks credentials. Unknown email, wrong password and inactive accounts are indistinguishable.
func (proc *Processor) Login(ctx context.Context, req modeldto.LoginRequest) (*modelstorage.UserStorageEntry, *http.Cookie, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := proc.validate.Struct(req); err != nil {
		return nil, nil, err
	}
	user, err := proc.storage.GetUserByEmail(ctx, req.Email)
	if err != nil {
		var notFound *storageErrors.NotFoundError
		if errors.As(err, &notFound) {
			proc.secretary.ComparePassword(proc.dummyHash, req.Password)
			return nil, nil, &serviceErrors.InvalidCredentialsError{}
		}
		return nil, nil, err
	}
	matches := proc.secretary.ComparePassword(user.PasswordHash, req.Password)
	if !matches || !user.IsActive {
		return nil, nil, &serviceErrors.InvalidCredentialsError{}
	}
	cookie, err := proc.sessionFor(user, req.Remember)
	if err != nil {
		return nil, nil, err
	}
	return user, cookie, nil
}

func (proc *Processor) Logout() *http.Cookie {
	return proc.secretary.ClearCookie()
}

func (proc *Processor) Authenticate(token string) (*modelclaims.SessionClaims, error) {
	if token == "" {
		return nil, &serviceErrors.UnauthorizedError{}
	}
	claims, err := proc.secretary.ValidateToken(token)
	if err != nil {
		return nil, &serviceErrors.UnauthorizedError{Err: err}
	}
	return claims, nil
}

func (proc *Processor) sessionFor(user *modelstorage.UserStorageEntry, remember bool) (*http.Cookie, error) {
	token, err := proc.secretary.NewToken(user.ID, user.UserType)
	if err != nil {
		return nil, err
	}
	return proc.secretary.SessionCookie(token, remember), nil
}

func (proc *Processor) GetCurrentUser(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	user, err := proc.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

func (proc *Processor) GetProfile(ctx context.Context, userID string) (*modelstorage.ProfileStorageEntry, error) {
	if err := proc.validate.Var("id", userID, "uuid"); err != nil {
		return nil, err
	}
	profile, err := proc.storage.GetPublicProfile(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return profile, nil
}

func (proc *Processor) SearchProfiles(ctx context.Context, query string) ([]modelstorage.SearchStorageEntry, error) {
	return proc.storage.SearchProfiles(ctx, strings.TrimSpace(query), SearchLimit)
}

func (proc *Processor) SetVerificationStatus(ctx context.Context, userID string, req modeldto.VerificationRequest) error {
	if err := proc.validate.Var("id", userID, "uuid"); err != nil {
		return err
	}
	if err := proc.validate.Struct(req); err != nil {
		return err
	}
	if err := proc.storage.SetVerificationStatus(ctx, userID, req.Status); err != nil {
		return notFound(err, "user not found")
	}
	return nil
}

func (proc *Processor) ListWallets(ctx context.Context, userID string) ([]modelstorage.WalletStorageEntry, error) {
	return proc.storage.ListWallets(ctx, userID)
}

func (proc *Processor) AddWallet(ctx context.Context, userID string, req modeldto.AddWalletRequest) (*modelstorage.WalletStorageEntry, error) {
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if err := proc.validate.Struct(req); err != nil {
		return nil, err
	}
	return proc.storage.AddWallet(ctx, userID, req.WalletAddress, req.Label)
}

// GetHistory lists sent, received or, for any other kind, all donations of a user.
func (proc *Processor) GetHistory(ctx context.Context, userID, kind string) ([]modelstorage.HistoryStorageEntry, error) {
	return proc.storage.GetHistory(ctx, userID, kind)
}

func (proc *Processor) GetStats(ctx context.Context, userID string) (*modelstorage.StatsStorageEntry, error) {
	return proc.storage.GetStats(ctx, userID)
}

// notFound turns a storage miss into a service-level not found error and passes anything else through.
func notFound(err error, msg string) error {
	var nf *storageErrors.NotFoundError
	if errors.As(err, &nf) {
		return &serviceErrors.NotFoundError{Msg: msg}
	}
	return err
}
