// Package inmemory implements a map-backed storage used when no database is configured.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	storage "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Storage keeps all records in memory; a single mutex serializes every operation.
type Storage struct {
	mu           sync.Mutex
	log          *zerolog.Logger
	users        map[string]modelstorage.UserStorageEntry
	logins       map[string]string
	requests     map[string]modelstorage.PaymentRequestStorageEntry
	transactions []modelstorage.TransactionStorageEntry
}

var _ storage.Storage = (*Storage)(nil)

// InitStorage initializes an empty in-memory storage.
func InitStorage(log *zerolog.Logger) *Storage {
	log.Warn().Msg("in-memory storage is used, data will not survive a restart")
	return &Storage{
		log:      log,
		users:    make(map[string]modelstorage.UserStorageEntry),
		logins:   make(map[string]string),
		requests: make(map[string]modelstorage.PaymentRequestStorageEntry),
	}
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logins[user.Login]; ok {
		return &storageErrors.AlreadyExistsError{ID: user.Login}
	}
	if _, ok := s.users[user.UserID]; ok {
		return &storageErrors.AlreadyExistsError{ID: user.UserID}
	}
	s.users[user.UserID] = user
	s.logins[user.Login] = user.UserID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	return &user, nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.logins[login]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: login}
	}
	user := s.users[userID]
	return &user, nil
}

func (s *Storage) AddNewPaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return &storageErrors.AlreadyExistsError{ID: request.ID}
	}
	if _, ok := s.users[request.UserID]; !ok {
		return &storageErrors.NotFoundError{ID: request.UserID}
	}
	s.requests[request.ID] = request
	return nil
}

func (s *Storage) GetPaymentRequestsByStatus(ctx context.Context, status string) ([]modelstorage.PaymentRequestStorageEntry, error) {
	return s.filterRequests(ctx, func(r modelstorage.PaymentRequestStorageEntry) bool { return r.Status == status })
}

func (s *Storage) GetPaymentRequestsByUser(ctx context.Context, userID string) ([]modelstorage.PaymentRequestStorageEntry, error) {
	return s.filterRequests(ctx, func(r modelstorage.PaymentRequestStorageEntry) bool { return r.UserID == userID })
}

func (s *Storage) filterRequests(ctx context.Context, keep func(modelstorage.PaymentRequestStorageEntry) bool) ([]modelstorage.PaymentRequestStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var requests []modelstorage.PaymentRequestStorageEntry
	for _, request := range s.requests {
		if keep(request) {
			requests = append(requests, request)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *Storage) DeletePaymentRequest(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return &storageErrors.NotFoundError{ID: requestID}
	}
	delete(s.requests, requestID)
	return nil
}

func (s *Storage) GetTransactions(ctx context.Context, userID string) ([]modelstorage.TransactionStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var transactions []modelstorage.TransactionStorageEntry
	for _, transaction := range s.transactions {
		if transaction.UserID == userID {
			transactions = append(transactions, transaction)
		}
	}
	return transactions, nil
}

// RunInTx holds the storage mutex for the whole callback and restores the previous state if it fails.
func (s *Storage) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make(map[string]modelstorage.UserStorageEntry, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	requests := make(map[string]modelstorage.PaymentRequestStorageEntry, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	ledgerLen := len(s.transactions)
	if err := fn(&tx{s: s}); err != nil {
		s.users = users
		s.requests = requests
		s.transactions = s.transactions[:ledgerLen]
		s.log.Warn().Err(err).Msg("in-memory transaction rolled back")
		return err
	}
	return nil
}

// tx operates on the parent storage whose mutex is already held.
type tx struct {
	s *Storage
}

func (t *tx) GetPaymentRequestForUpdate(ctx context.Context, requestID string) (*modelstorage.PaymentRequestStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	request, ok := t.s.requests[requestID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: requestID}
	}
	return &request, nil
}

func (t *tx) UpdatePaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	if _, ok := t.s.requests[request.ID]; !ok {
		return &storageErrors.NotFoundError{ID: request.ID}
	}
	t.s.requests[request.ID] = request
	return nil
}

func (t *tx) GetUserForUpdate(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	user, ok := t.s.users[userID]
	if !ok {
		return nil, &storageErrors.NotFoundError{ID: userID}
	}
	return &user, nil
}

func (t *tx) UpdateRealBalance(ctx context.Context, userID string, realBalance decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	user, ok := t.s.users[userID]
	if !ok {
		return &storageErrors.NotFoundError{ID: userID}
	}
	user.RealBalance = realBalance
	t.s.users[userID] = user
	return nil
}

func (t *tx) AddTransaction(ctx context.Context, transaction modelstorage.TransactionStorageEntry) error {
	if err := ctx.Err(); err != nil {
		return &storageErrors.ContextTimeoutExceededError{Err: err}
	}
	t.s.transactions = append(t.s.transactions, transaction)
	return nil
}
