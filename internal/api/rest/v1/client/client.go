// Package client implements a client for the paydesk administrator API.
package client

import (
	"context"
	"fmt"
	"net/http"

	handlersErrors "github.com/danilovkiri/dk-go-paydesk/internal/api/rest/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	processor "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client defines attributes of a struct available to its methods.
type Client struct {
	client *resty.Client
	log    *zerolog.Logger
}

var _ processor.Reviewer = (*Client)(nil)

// InitClient initializes a resty client.
func InitClient(cfg *config.ClientConfig, log *zerolog.Logger) *Client {
	restyClient := resty.New().
		SetBaseURL(cfg.ServerAddress).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "application/json")
	log.Info().Msg(fmt.Sprintf("paydesk client initialized for %s", cfg.ServerAddress))
	return &Client{client: restyClient, log: log}
}

// ListPendingRequests fetches payment requests awaiting review.
func (c *Client) ListPendingRequests(ctx context.Context) ([]modeldto.PaymentRequest, error) {
	var pending []modeldto.PaymentRequest
	response, err := c.client.R().
		SetContext(ctx).
		SetResult(&pending).
		SetError(&modeldto.Error{}).
		Get("/api/admin/payments/pending")
	if err := c.check(response, err); err != nil {
		return nil, err
	}
	return pending, nil
}

// ReviewRequest sends a status-only approve or reject patch to its dedicated route and any other
// patch as a PATCH of the request.
func (c *Client) ReviewRequest(ctx context.Context, requestID string, patch modeldto.PaymentRequestPatch) (*modeldto.PaymentRequest, error) {
	var reviewed modeldto.PaymentRequest
	request := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": requestID}).
		SetResult(&reviewed).
		SetError(&modeldto.Error{})

	var (
		response *resty.Response
		err      error
	)
	switch {
	case isDecision(patch, modelstorage.StatusApproved):
		response, err = request.Post("/api/admin/payments/{id}/approve")
	case isDecision(patch, modelstorage.StatusRejected):
		response, err = request.Post("/api/admin/payments/{id}/reject")
	default:
		response, err = request.SetHeader("Content-Type", "application/json").SetBody(patch).Patch("/api/admin/payments/{id}")
	}
	if err := c.check(response, err); err != nil {
		return nil, err
	}
	return &reviewed, nil
}

// DeleteRequest removes a payment request record.
func (c *Client) DeleteRequest(ctx context.Context, requestID string) error {
	response, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": requestID}).
		SetError(&modeldto.Error{}).
		Delete("/api/admin/payments/{id}")
	return c.check(response, err)
}

func (c *Client) check(response *resty.Response, err error) error {
	if err != nil {
		c.log.Error().Err(err).Msg("paydesk request failed")
		return err
	}
	if !response.IsError() {
		return nil
	}
	apiErr := &handlersErrors.APIError{Status: response.StatusCode(), Message: http.StatusText(response.StatusCode())}
	if body, ok := response.Error().(*modeldto.Error); ok && body.Error != "" {
		apiErr.Message = body.Error
	}
	c.log.Error().Err(apiErr).Msg(fmt.Sprintf("paydesk responded with %d", apiErr.Status))
	return apiErr
}

func isDecision(patch modeldto.PaymentRequestPatch, status string) bool {
	return patch.Status != nil && *patch.Status == status &&
		patch.Method == nil && patch.AccountDetails == nil && patch.TransactionID == nil
}
