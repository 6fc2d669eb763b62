// Package processor provides intermediary layer functionality between the DB and API endpoint handlers.

package processor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	processor "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1"
	serviceErrors "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/secretary/v1"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// initialDemoBalance is credited to the practice balance of every new account.
var initialDemoBalance = decimal.NewFromInt(1000)

// Processor defines attributes of a struct available to its methods.
type Processor struct {
	storage   storage.Storage
	secretary secretary.Secretary
	validate  *validator.Validate
	log       *zerolog.Logger
}

var _ processor.Processor = (*Processor)(nil)

// InitService initializes an intermediary service for data processing.
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
	return &Processor{
		storage:   st,
		secretary: sec,
		validate:  newValidator(),
		log:       log,
	}, nil
}

// newValidator returns a validator that compares decimal amounts as numbers.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// GetClaims retrieves user identifier and role from an access token.
func (proc *Processor) GetClaims(accessToken string) (*modelclaims.MyCustomClaims, error) {
	return proc.secretary.ValidateToken(accessToken)
}

// AddNewUser processes user register requests.
func (proc *Processor) AddNewUser(ctx context.Context, credentials modeldto.User) (string, error) {
	userID, err := proc.addUser(ctx, credentials, modelstorage.RoleUser)
	if err != nil {
		return "", err
	}
	return proc.secretary.NewToken(userID, modelstorage.RoleUser)
}

// EnsureAdmin creates the administrator account unless its login is already taken.
func (proc *Processor) EnsureAdmin(ctx context.Context, credentials modeldto.User) error {
	_, err := proc.addUser(ctx, credentials, modelstorage.RoleAdmin)
	var alreadyExistsError *storageErrors.AlreadyExistsError
	if errors.As(err, &alreadyExistsError) {
		proc.log.Info().Msg(fmt.Sprintf("administrator %s already exists", credentials.Login))
		return nil
	}
	return err
}

func (proc *Processor) addUser(ctx context.Context, credentials modeldto.User, role string) (string, error) {
	if err := proc.validate.Struct(credentials); err != nil {
		return "", &serviceErrors.ServiceInvalidInput{Msg: err.Error()}
	}
	hash, err := proc.secretary.HashPassword(credentials.Password)
	if err != nil {
		return "", err
	}
	user := modelstorage.UserStorageEntry{
		UserID:       uuid.New().String(),
		Login:        credentials.Login,
		Password:     hash,
		Role:         role,
		DemoBalance:  initialDemoBalance,
		RealBalance:  decimal.Zero,
		RegisteredAt: time.Now().UTC(),
	}
	if err := proc.storage.AddNewUser(ctx, user); err != nil {
		return "", err
	}
	return user.UserID, nil
}

// LoginUser processes user login requests.
func (proc *Processor) LoginUser(ctx context.Context, credentials modeldto.User) (string, error) {
	user, err := proc.storage.GetUserByLogin(ctx, credentials.Login)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return "", &serviceErrors.ServiceInvalidCredentials{Msg: "invalid login or password"}
		}
		return "", err
	}
	if err := proc.secretary.ComparePassword(user.Password, credentials.Password); err != nil {
		return "", &serviceErrors.ServiceInvalidCredentials{Msg: "invalid login or password"}
	}
	return proc.secretary.NewToken(user.UserID, user.Role)
}

// GetBalance processes balance query requests.
func (proc *Processor) GetBalance(ctx context.Context, userID string) (*modeldto.Balance, error) {
	user, err := proc.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &modeldto.Balance{
		DemoBalance: user.DemoBalance,
		RealBalance: user.RealBalance,
	}, nil
}

// GetTransactions processes ledger query requests.
func (proc *Processor) GetTransactions(ctx context.Context, userID string) ([]modeldto.Transaction, error) {
	entries, err := proc.storage.GetTransactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	transactions := make([]modeldto.Transaction, 0, len(entries))
	for _, entry := range entries {
		transactions = append(transactions, modeldto.Transaction{
			ID:        entry.ID,
			UserID:    entry.UserID,
			Type:      entry.Type,
			Amount:    entry.Amount,
			Status:    entry.Status,
			Method:    entry.Method,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt,
		})
	}
	return transactions, nil
}
