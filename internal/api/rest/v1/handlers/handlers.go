// Package handlers provides API endpoint handling functionality.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	handlersErrors "github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/middleware"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1"
	serviceErrors "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/reviewer/v1/reviewer"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/rs/zerolog"
)

const handlerTimeout = 500 * time.Millisecond

// Handler defines attributes of a struct available to its methods.
type Handler struct {
	service processor.Processor
	desk    *reviewer.Controller
	log     *zerolog.Logger
}

// InitHandlers initializes a handler object.
func InitHandlers(mainService processor.Processor, desk *reviewer.Controller, log *zerolog.Logger) (*Handler, error) {
	if mainService == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil processor was passed to handlers initializer"}
	}
	if desk == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil review controller was passed to handlers initializer"}
	}
	if log == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil logger was passed to handlers initializer"}
	}
	return &Handler{service: mainService, desk: desk, log: log}, nil
}

// HandleRegister processes user register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		var credentials modeldto.User
		if err := decodeJSON(r, &credentials, false); err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new user register request detected for %s", credentials.Login))
		accessToken, err := h.service.AddNewUser(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleRegister failed")
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleLogin processes user login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		var credentials modeldto.User
		if err := decodeJSON(r, &credentials, false); err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Info().Msg(fmt.Sprintf("new login request detected for %s", credentials.Login))
		accessToken, err := h.service.LoginUser(ctx, credentials)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleLogin failed")
			h.writeServiceError(w, err)
			return
		}
		w.Header().Set("Authorization", "Bearer "+accessToken)
		w.WriteHeader(http.StatusOK)
	}
}

// HandleGetBalance processes balance query requests.
func (h *Handler) HandleGetBalance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		claims, _ := middleware.ClaimsFromContext(r.Context())
		balance, err := h.service.GetBalance(ctx, claims.UserID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetBalance failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, balance)
	}
}

// HandleGetTransactions processes ledger query requests.
func (h *Handler) HandleGetTransactions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		claims, _ := middleware.ClaimsFromContext(r.Context())
		transactions, err := h.service.GetTransactions(ctx, claims.UserID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetTransactions failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, transactions)
	}
}

// HandleNewPaymentRequest processes deposit and withdrawal submissions.
func (h *Handler) HandleNewPaymentRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		claims, _ := middleware.ClaimsFromContext(r.Context())
		var request modeldto.NewPaymentRequest
		if err := decodeJSON(r, &request, false); err != nil {
			h.log.Error().Err(err).Msg("HandleNewPaymentRequest failed")
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		created, err := h.service.AddNewPaymentRequest(ctx, claims.UserID, request)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleNewPaymentRequest failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// HandleGetPaymentRequests processes payment request history queries.
func (h *Handler) HandleGetPaymentRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		claims, _ := middleware.ClaimsFromContext(r.Context())
		requests, err := h.service.GetPaymentRequests(ctx, claims.UserID)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetPaymentRequests failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, requests)
	}
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeJSON(w, http.StatusOK, modeldto.Message{Message: "ok"})
	}
}

// HandleMethodNotAllowed answers verbs a route does not support.
func (h *Handler) HandleMethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s is not allowed", r.Method))
	}
}

// HandleNotFound answers unknown routes.
func (h *Handler) HandleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("route %s not found", r.URL.Path))
	}
}

func decodeJSON(r *http.Request, v interface{}, strict bool) error {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return errors.New("invalid Content-Type")
	}
	decoder := json.NewDecoder(r.Body)
	if strict {
		decoder.DisallowUnknownFields()
	}
	return decoder.Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	resBody, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Msg("response encoding failed")
		middleware.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resBody); err != nil {
		h.log.Error().Err(err).Msg("response writing failed")
	}
}

// writeServiceError maps typed service and storage errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var (
		notFoundError         *storageErrors.NotFoundError
		alreadyExistsError    *storageErrors.AlreadyExistsError
		contextTimeoutError   *storageErrors.ContextTimeoutExceededError
		invalidInput          *serviceErrors.ServiceInvalidInput
		illegalAccountDetails *serviceErrors.ServiceIllegalAccountDetails
		illegalTransition     *serviceErrors.ServiceIllegalTransition
		insufficientBalance   *serviceErrors.ServiceInsufficientBalance
		orphanedRequest       *serviceErrors.ServiceOrphanedRequest
		invalidCredentials    *serviceErrors.ServiceInvalidCredentials
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &notFoundError):
		status = http.StatusNotFound
	case errors.As(err, &alreadyExistsError):
		status = http.StatusConflict
	case errors.As(err, &contextTimeoutError), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &invalidInput), errors.Is(err, reviewer.ErrUnknownDecision):
		status = http.StatusBadRequest
	case errors.As(err, &insufficientBalance):
		status = http.StatusBadRequest
	case errors.As(err, &illegalAccountDetails):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &orphanedRequest):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &illegalTransition):
		status = http.StatusConflict
	case errors.As(err, &invalidCredentials):
		status = http.StatusUnauthorized
	}
	middleware.WriteError(w, status, err.Error())
}
