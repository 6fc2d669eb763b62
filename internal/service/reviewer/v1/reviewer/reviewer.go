// Package reviewer implements the administrator's review desk on top of a payment request reviewer.
//
// The desk only forwards decisions; balance and ledger changes are made exclusively by the
// reviewer it wraps.
package reviewer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	processor "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1"
	"github.com/rs/zerolog"
)

// ErrUnknownDecision is returned by Act for decisions other than approved and rejected.
var ErrUnknownDecision = errors.New("decision must be approved or rejected")

// Controller keeps the last fetched list of pending requests.
type Controller struct {
	mu       sync.RWMutex
	reviewer processor.Reviewer
	pending  []modeldto.PaymentRequest
	log      *zerolog.Logger
}

// NewController initializes a review desk.
func NewController(r processor.Reviewer, log *zerolog.Logger) (*Controller, error) {
	if r == nil {
		return nil, errors.New("nil reviewer was passed to controller initializer")
	}
	if log == nil {
		return nil, errors.New("nil logger was passed to controller initializer")
	}
	return &Controller{reviewer: r, log: log}, nil
}

// ListPending fetches the pending requests, caches and returns them as is.
func (c *Controller) ListPending(ctx context.Context) ([]modeldto.PaymentRequest, error) {
	pending, err := c.reviewer.ListPendingRequests(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pending = pending
	c.mu.Unlock()
	return pending, nil
}

// Act forwards an approve or reject decision. The cached list is refreshed only after success.
func (c *Controller) Act(ctx context.Context, requestID, decision string) (*modeldto.PaymentRequest, error) {
	if decision != modelstorage.StatusApproved && decision != modelstorage.StatusRejected {
		return nil, ErrUnknownDecision
	}
	reviewed, err := c.reviewer.ReviewRequest(ctx, requestID, modeldto.PaymentRequestPatch{Status: &decision})
	if err != nil {
		c.log.Warn().Err(err).Msg(fmt.Sprintf("%s decision on %s failed", decision, requestID))
		return nil, err
	}
	if _, err := c.ListPending(ctx); err != nil {
		c.log.Error().Err(err).Msg("refreshing pending requests failed")
	}
	return reviewed, nil
}

// Pending returns a copy of the cached pending requests.
func (c *Controller) Pending() []modeldto.PaymentRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pending := make([]modeldto.PaymentRequest, len(c.pending))
	copy(pending, c.pending)
	return pending
}
