package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/reviewer/v1/reviewer"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReviewer struct {
	pending []modeldto.PaymentRequest
}

func (s *stubReviewer) ListPendingRequests(_ context.Context) ([]modeldto.PaymentRequest, error) {
	return s.pending, nil
}

func (s *stubReviewer) ReviewRequest(_ context.Context, requestID string, patch modeldto.PaymentRequestPatch) (*modeldto.PaymentRequest, error) {
	for i, request := range s.pending {
		if request.ID == requestID {
			s.pending = append(s.pending[:i:i], s.pending[i+1:]...)
			request.Status = *patch.Status
			return &request, nil
		}
	}
	return nil, errors.New("payment request not found")
}

func newDesk(t *testing.T) *reviewer.Controller {
	t.Helper()
	log := zerolog.Nop()
	desk, err := reviewer.NewController(&stubReviewer{pending: []modeldto.PaymentRequest{
		{ID: "req-1", UserID: "u-1", Type: "deposit", Amount: decimal.NewFromInt(25), Method: "card", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}}, &log)
	require.NoError(t, err)
	return desk
}

func TestRun_Pending(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newDesk(t), []string{"pending"}, &out))
	assert.Contains(t, out.String(), "req-1")
	assert.Contains(t, out.String(), "25.00")
	assert.Contains(t, out.String(), "2024-01-02T03:04:05Z")
}

func TestRun_Approve(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), newDesk(t), []string{"approve", "req-1"}, &out))
	assert.Contains(t, out.String(), "payment request req-1 is approved")
	assert.Contains(t, out.String(), "no pending payment requests")
}

func TestRun_BadArguments(t *testing.T) {
	for _, args := range [][]string{nil, {"approve"}, {"refund", "req-1"}} {
		assert.Error(t, run(context.Background(), newDesk(t), args, &bytes.Buffer{}))
	}
	assert.Error(t, run(context.Background(), newDesk(t), []string{"reject", "missing"}, &bytes.Buffer{}))
}
