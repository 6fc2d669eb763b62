// Package inpsql implements storage on top of PostgreSQL.
package inpsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	storage "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	selectRequestColumns     = "id, user_id, type, amount, status, method, account_details, transaction_id, created_at, updated_at"
	selectUserColumns        = "user_id, login, password, role, demo_balance, real_balance, registered_at"
	selectTransactionColumns = "id, user_id, type, amount, status, method, details, created_at"
)

// Storage defines attributes of a struct available to its methods.
type Storage struct {
	Cfg *config.StorageConfig
	DB  *sql.DB
	log *zerolog.Logger
}

var _ storage.Storage = (*Storage)(nil)

// InitStorage opens a PSQL connection and creates missing tables.
func InitStorage(ctx context.Context, cfg *config.StorageConfig, log *zerolog.Logger) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	st := Storage{
		Cfg: cfg,
		DB:  db,
		log: log,
	}
	if err := st.createTables(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("PSQL DB connection was established")
	return &st, nil
}

// Close closes the underlying connection pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error {
	stmt, err := s.DB.PrepareContext(ctx, "INSERT INTO users (user_id, login, password, role, demo_balance, real_balance, registered_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer stmt.Close()
	chanEr := make(chan error, 1)
	go func() {
		_, err := stmt.ExecContext(ctx, user.UserID, user.Login, user.Password, user.Role, user.DemoBalance, user.RealBalance, user.RegisteredAt)
		chanEr <- convertExecError(err, user.Login)
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding new user failed for %s", user.Login))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		if methodErr != nil {
			s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding new user failed for %s", user.Login))
			return methodErr
		}
		s.log.Info().Msg(fmt.Sprintf("adding new user done for %s", user.Login))
		return nil
	}
}

func (s *Storage) GetUser(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+selectUserColumns+" FROM users WHERE user_id = $1", userID)
	user, err := scanUser(row, userID)
	if err != nil {
		return nil, s.wrapContext(ctx, err)
	}
	return user, nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*modelstorage.UserStorageEntry, error) {
	row := s.DB.QueryRowContext(ctx, "SELECT "+selectUserColumns+" FROM users WHERE login = $1", login)
	user, err := scanUser(row, login)
	if err != nil {
		return nil, s.wrapContext(ctx, err)
	}
	return user, nil
}

func (s *Storage) AddNewPaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error {
	stmt, err := s.DB.PrepareContext(ctx, "INSERT INTO payment_requests ("+selectRequestColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)")
	if err != nil {
		return &storageErrors.StatementPSQLError{Err: err}
	}
	defer stmt.Close()
	chanEr := make(chan error, 1)
	go func() {
		_, err := stmt.ExecContext(ctx, request.ID, request.UserID, request.Type, request.Amount, request.Status,
			request.Method, request.AccountDetails, request.TransactionID, request.CreatedAt, request.UpdatedAt)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			chanEr <- &storageErrors.NotFoundError{Err: err, ID: request.UserID}
			return
		}
		chanEr <- convertExecError(err, request.ID)
	}()

	select {
	case <-ctx.Done():
		s.log.Error().Err(ctx.Err()).Msg(fmt.Sprintf("adding payment request failed for %s", request.ID))
		return &storageErrors.ContextTimeoutExceededError{Err: ctx.Err()}
	case methodErr := <-chanEr:
		if methodErr != nil {
			s.log.Error().Err(methodErr).Msg(fmt.Sprintf("adding payment request failed for %s", request.ID))
			return methodErr
		}
		s.log.Info().Msg(fmt.Sprintf("adding payment request done for %s", request.ID))
		return nil
	}
}

func (s *Storage) GetPaymentRequestsByStatus(ctx context.Context, status string) ([]modelstorage.PaymentRequestStorageEntry, error) {
	return s.queryRequests(ctx, "SELECT "+selectRequestColumns+" FROM payment_requests WHERE status = $1 ORDER BY created_at, id", status)
}

func (s *Storage) GetPaymentRequestsByUser(ctx context.Context, userID string) ([]modelstorage.PaymentRequestStorageEntry, error) {
	return s.queryRequests(ctx, "SELECT "+selectRequestColumns+" FROM payment_requests WHERE user_id = $1 ORDER BY created_at, id", userID)
}

func (s *Storage) queryRequests(ctx context.Context, query string, arg string) ([]modelstorage.PaymentRequestStorageEntry, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, s.wrapContext(ctx, &storageErrors.ExecutionPSQLError{Err: err})
	}
	defer rows.Close()
	var requests []modelstorage.PaymentRequestStorageEntry
	for rows.Next() {
		var entry modelstorage.PaymentRequestStorageEntry
		err = rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Amount, &entry.Status,
			&entry.Method, &entry.AccountDetails, &entry.TransactionID, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		requests = append(requests, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return requests, nil
}

func (s *Storage) DeletePaymentRequest(ctx context.Context, requestID string) error {
	result, err := s.DB.ExecContext(ctx, "DELETE FROM payment_requests WHERE id = $1", requestID)
	if err != nil {
		return s.wrapContext(ctx, &storageErrors.ExecutionPSQLError{Err: err})
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if affected == 0 {
		return &storageErrors.NotFoundError{ID: requestID}
	}
	s.log.Info().Msg(fmt.Sprintf("payment request %s deleted", requestID))
	return nil
}

func (s *Storage) GetTransactions(ctx context.Context, userID string) ([]modelstorage.TransactionStorageEntry, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT "+selectTransactionColumns+" FROM transactions WHERE user_id = $1 ORDER BY created_at, id", userID)
	if err != nil {
		return nil, s.wrapContext(ctx, &storageErrors.ExecutionPSQLError{Err: err})
	}
	defer rows.Close()
	var transactions []modelstorage.TransactionStorageEntry
	for rows.Next() {
		var entry modelstorage.TransactionStorageEntry
		err = rows.Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Amount, &entry.Status, &entry.Method, &entry.Details, &entry.CreatedAt)
		if err != nil {
			return nil, &storageErrors.ScanningPSQLError{Err: err}
		}
		transactions = append(transactions, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return transactions, nil
}

// RunInTx wraps fn in a read-committed transaction; rows read through tx are locked until commit.
func (s *Storage) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	sqlTx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return s.wrapContext(ctx, &storageErrors.ExecutionPSQLError{Err: err})
	}
	if err := fn(&tx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return s.wrapContext(ctx, err)
	}
	if err := sqlTx.Commit(); err != nil {
		s.log.Error().Err(err).Msg("transaction commit failed")
		return s.wrapContext(ctx, &storageErrors.ExecutionPSQLError{Err: err})
	}
	return nil
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) GetPaymentRequestForUpdate(ctx context.Context, requestID string) (*modelstorage.PaymentRequestStorageEntry, error) {
	var entry modelstorage.PaymentRequestStorageEntry
	err := t.tx.QueryRowContext(ctx, "SELECT "+selectRequestColumns+" FROM payment_requests WHERE id = $1 FOR UPDATE", requestID).
		Scan(&entry.ID, &entry.UserID, &entry.Type, &entry.Amount, &entry.Status,
			&entry.Method, &entry.AccountDetails, &entry.TransactionID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: requestID}
		}
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return &entry, nil
}

func (t *tx) UpdatePaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error {
	result, err := t.tx.ExecContext(ctx,
		"UPDATE payment_requests SET status = $2, method = $3, account_details = $4, transaction_id = $5, updated_at = $6 WHERE id = $1",
		request.ID, request.Status, request.Method, request.AccountDetails, request.TransactionID, request.UpdatedAt)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return &storageErrors.NotFoundError{ID: request.ID}
	}
	return nil
}

func (t *tx) GetUserForUpdate(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	row := t.tx.QueryRowContext(ctx, "SELECT "+selectUserColumns+" FROM users WHERE user_id = $1 FOR UPDATE", userID)
	return scanUser(row, userID)
}

func (t *tx) UpdateRealBalance(ctx context.Context, userID string, realBalance decimal.Decimal) error {
	result, err := t.tx.ExecContext(ctx, "UPDATE users SET real_balance = $2 WHERE user_id = $1", userID, realBalance)
	if err != nil {
		return &storageErrors.ExecutionPSQLError{Err: err}
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return &storageErrors.NotFoundError{ID: userID}
	}
	return nil
}

func (t *tx) AddTransaction(ctx context.Context, transaction modelstorage.TransactionStorageEntry) error {
	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO transactions ("+selectTransactionColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		transaction.ID, transaction.UserID, transaction.Type, transaction.Amount, transaction.Status,
		transaction.Method, transaction.Details, transaction.CreatedAt)
	return convertExecError(err, transaction.ID)
}

func scanUser(row *sql.Row, key string) (*modelstorage.UserStorageEntry, error) {
	var user modelstorage.UserStorageEntry
	err := row.Scan(&user.UserID, &user.Login, &user.Password, &user.Role, &user.DemoBalance, &user.RealBalance, &user.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &storageErrors.NotFoundError{Err: err, ID: key}
		}
		return nil, &storageErrors.ScanningPSQLError{Err: err}
	}
	return &user, nil
}

func convertExecError(err error, id string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return &storageErrors.AlreadyExistsError{Err: err, ID: id}
	}
	return &storageErrors.ExecutionPSQLError{Err: err}
}

// wrapContext reports a cancelled or expired context instead of the driver error it caused.
func (s *Storage) wrapContext(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.log.Error().Err(err).Msg("storage operation interrupted")
		return &storageErrors.ContextTimeoutExceededError{Err: ctxErr}
	}
	return err
}

func (s *Storage) createTables(ctx context.Context) error {
	var queries []string
	query := `CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT           PRIMARY KEY,
		login         TEXT           NOT NULL UNIQUE,
		password      TEXT           NOT NULL,
		role          TEXT           NOT NULL,
		demo_balance  NUMERIC(18, 2) NOT NULL,
		real_balance  NUMERIC(18, 2) NOT NULL CHECK (real_balance >= 0),
		registered_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS payment_requests (
		id              TEXT           PRIMARY KEY,
		user_id         TEXT           NOT NULL REFERENCES users (user_id),
		type            TEXT           NOT NULL,
		amount          NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
		status          TEXT           NOT NULL,
		method          TEXT           NOT NULL,
		account_details TEXT           NOT NULL,
		transaction_id  TEXT           NOT NULL,
		created_at      TIMESTAMPTZ    NOT NULL,
		updated_at      TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	query = `CREATE INDEX IF NOT EXISTS payment_requests_status_idx ON payment_requests (status);`
	queries = append(queries, query)
	query = `CREATE TABLE IF NOT EXISTS transactions (
		id         TEXT           PRIMARY KEY,
		user_id    TEXT           NOT NULL,
		type       TEXT           NOT NULL,
		amount     NUMERIC(18, 2) NOT NULL,
		status     TEXT           NOT NULL,
		method     TEXT           NOT NULL,
		details    TEXT           NOT NULL,
		created_at TIMESTAMPTZ    NOT NULL
	);`
	queries = append(queries, query)
	for _, subquery := range queries {
		_, err := s.DB.ExecContext(ctx, subquery)
		if err != nil {
			return err
		}
	}
	return nil
}
