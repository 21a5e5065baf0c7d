// Package handlers provides API endpoint handling functionality.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	handlersErrors "github.com/danilovkiri/dk-go-donations/internal/api/rest/errors"
	"github.com/danilovkiri/dk-go-donations/internal/api/rest/middleware"
	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/service/orchestrator"
	"github.com/danilovkiri/dk-go-donations/internal/service/processor"
	serviceErrors "github.com/danilovkiri/dk-go-donations/internal/service/errors"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
	chimiddleware "github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service      processor.Processor
	donations    orchestrator.Orchestrator
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, donations orchestrator.Orchestrator, serverConfig *config.ServerConfig, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if donations == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil orchestrator was passed to handlers initializer"}
	}
	if serverConfig == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil server config was passed to handlers initializer"}
	}
	if log == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil logger was passed to handlers initializer"}
	}
	return &Handler{service: mainService, donations: donations, serverConfig: serverConfig, log: log}, nil
}

// HandleHealth reports that the server is up.
func (h *Handler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, modeldto.OKResponse{OK: true})
	}
}

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.serverConfig.RequestTimeout)
}

func (h *Handler) authorityContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.serverConfig.AuthorityTimeout)
}

// userID returns the authenticated caller. Routes using it are mounted behind TokenHandle.
func userID(r *http.Request) string {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.UserID
}

// decodeBody reads a JSON body into dst. An empty body is accepted when allowEmpty is set.
func decodeBody(r *http.Request, dst interface{}, allowEmpty bool) error {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return &handlersErrors.InvalidBodyError{Err: err}
	}
	if len(b) == 0 {
		if allowEmpty {
			return nil
		}
		return &handlersErrors.InvalidBodyError{}
	}
	if err = json.Unmarshal(b, dst); err != nil {
		return &handlersErrors.InvalidBodyError{Err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, modeldto.ErrorResponse{Error: msg})
}

// handleError maps typed service and storage errors onto responses. Unclassified errors are logged
// and answered with a generic message.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		invalidBody     *handlersErrors.InvalidBodyError
		validation      *serviceErrors.ValidationError
		credentials     *serviceErrors.InvalidCredentialsError
		unauthorized    *serviceErrors.UnauthorizedError
		forbidden       *serviceErrors.ForbiddenError
		notFound        *serviceErrors.NotFoundError
		stateNotFound   *serviceErrors.StateNotFoundError
		badRequest      *serviceErrors.BadRequestError
		badState        *serviceErrors.BadStateError
		rowNotFound     *storageErrors.NotFoundError
		alreadyExists   *storageErrors.AlreadyExistsError
		versionConflict *storageErrors.VersionConflictError
		timeout         *storageErrors.ContextTimeoutExceededError
		authority       *serviceErrors.AuthorityError
	)
	status := http.StatusBadRequest
	switch {
	case errors.As(err, &invalidBody):
		writeError(w, status, "invalid request body")
	case errors.As(err, &validation):
		writeJSON(w, status, modeldto.ValidationErrorResponse{Errors: validation.Fields})
	case errors.As(err, &credentials):
		writeError(w, status, credentials.Error())
	case errors.As(err, &badRequest):
		writeError(w, status, badRequest.Msg)
	case errors.As(err, &badState):
		writeError(w, status, badState.Msg)
	case errors.As(err, &alreadyExists):
		writeError(w, status, "already registered")
	case errors.As(err, &unauthorized):
		status = http.StatusUnauthorized
		writeError(w, status, "not authenticated")
	case errors.As(err, &forbidden):
		status = http.StatusForbidden
		writeError(w, status, forbidden.Msg)
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		writeError(w, status, notFound.Msg)
	case errors.As(err, &stateNotFound):
		status = http.StatusNotFound
		writeError(w, status, "donation not found or not initiated")
	case errors.As(err, &rowNotFound):
		status = http.StatusNotFound
		writeError(w, status, "not found")
	case errors.As(err, &versionConflict):
		status = http.StatusConflict
		writeError(w, status, "donation state was modified concurrently")
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		writeError(w, status, "request timed out")
	case errors.As(err, &authority):
		status = http.StatusInternalServerError
		writeError(w, status, "payment authority request failed")
	default:
		status = http.StatusInternalServerError
		writeError(w, status, "internal server error")
	}
	event := h.log.Debug()
	if status >= http.StatusInternalServerError {
		event = h.log.Error()
	}
	event.Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Int("status", status).Msg(op + " failed")
}
