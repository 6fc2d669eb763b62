// Package secretary provides methods for issuing tokens and hashing credentials.
package secretary

import "github.com/danilovkiri/dk-go-paydesk/internal/models/modelclaims"

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
	NewToken(userID, role string) (string, error)
	ValidateToken(accessToken string) (*modelclaims.MyCustomClaims, error)
}
