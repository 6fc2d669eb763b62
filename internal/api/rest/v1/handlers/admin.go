package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/middleware"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	"github.com/go-chi/chi"
)

// HandleGetPending lists payment requests awaiting review.
func (h *Handler) HandleGetPending() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		pending, err := h.desk.ListPending(ctx)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleGetPending failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, pending)
	}
}

// HandleApprove approves a payment request.
func (h *Handler) HandleApprove() http.HandlerFunc {
	return h.handleDecision(modelstorage.StatusApproved)
}

// HandleReject rejects a payment request.
func (h *Handler) HandleReject() http.HandlerFunc {
	return h.handleDecision(modelstorage.StatusRejected)
}

func (h *Handler) handleDecision(decision string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		requestID := chi.URLParam(r, "id")
		claims, _ := middleware.ClaimsFromContext(r.Context())
		h.log.Info().Msg(fmt.Sprintf("%s decision on %s by %s", decision, requestID, claims.UserID))
		reviewed, err := h.desk.Act(ctx, requestID, decision)
		if err != nil {
			h.log.Error().Err(err).Msg("HandleDecision failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, reviewed)
	}
}

// HandlePatch applies an administrator edit to a payment request.
func (h *Handler) HandlePatch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		requestID := chi.URLParam(r, "id")
		var patch modeldto.PaymentRequestPatch
		if err := decodeJSON(r, &patch, true); err != nil {
			h.log.Error().Err(err).Msg("HandlePatch failed")
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		reviewed, err := h.service.ReviewRequest(ctx, requestID, patch)
		if err != nil {
			h.log.Error().Err(err).Msg("HandlePatch failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, reviewed)
	}
}

// HandleDelete removes a payment request record.
func (h *Handler) HandleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), handlerTimeout)
		defer cancel()
		requestID := chi.URLParam(r, "id")
		if err := h.service.DeleteRequest(ctx, requestID); err != nil {
			h.log.Error().Err(err).Msg("HandleDelete failed")
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, modeldto.Message{Message: fmt.Sprintf("payment request %s deleted", requestID)})
	}
}
