// Package middleware provides various middleware functionality.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	handlersErrors "github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/secretary/v1"
)

type ctxKey struct{}

// TokenHandler sets object structure.
type TokenHandler struct {
	sec secretary.Secretary
}

// NewTokenHandler initializes a new token handler.
func NewTokenHandler(sec secretary.Secretary) (*TokenHandler, error) {
	if sec == nil {
		return nil, &handlersErrors.HandlersFoundNilArgument{Msg: "nil secretary was passed to token handler initializer"}
	}
	return &TokenHandler{sec: sec}, nil
}

// TokenHandle validates the bearer token and stores its claims in the request context.
func (c *TokenHandler) TokenHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if !strings.HasPrefix(tokenString, "Bearer ") {
			WriteError(w, http.StatusUnauthorized, "token authorization required")
			return
		}
		claims, err := c.sec.ValidateToken(strings.TrimPrefix(tokenString, "Bearer "))
		if err != nil {
			WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// AdminHandle lets through administrators only. It must run after TokenHandle.
func (c *TokenHandler) AdminHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, "token authorization required")
			return
		}
		if claims.Role != modelstorage.RoleAdmin {
			WriteError(w, http.StatusForbidden, "administrator role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext returns the claims put by TokenHandle.
func ClaimsFromContext(ctx context.Context) (*modelclaims.MyCustomClaims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*modelclaims.MyCustomClaims)
	return claims, ok && claims != nil
}

// WriteError sends a JSON error body with the given status code.
func WriteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(modeldto.Error{Status: status, Error: msg})
}
