package security

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
)

// RoleStaff marks rental desk and back-office callers.
const RoleStaff = "staff"

// CustomerClaims are issued by the identity provider. Subject carries the
// customer id.
type CustomerClaims struct {
	CustomerID string    `json:"customer_id"`
	Email      string    `json:"email,omitempty"`
	Type       TokenType `json:"type"`
	Roles      []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *CustomerClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

type TokenManager interface {
	GenerateAccessToken(customerID, email string, roles []string) (string, error)
	ValidateToken(tokenString string) (*CustomerClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret, issuer string) TokenManager {
	if issuer == "" {
		issuer = "auth-service"
	}
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    time.Hour,
	}
}

// GenerateAccessToken mints a token the way the identity provider does.
// Used by tooling and tests.
func (m *tokenManager) GenerateAccessToken(customerID, email string, roles []string) (string, error) {
	claims := CustomerClaims{
		CustomerID: customerID,
		Email:      email,
		Type:       TokenTypeAccess,
		Roles:      roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   customerID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{"api-access"},
			ID:        generateJTI(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*CustomerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if claims.CustomerID == "" {
		claims.CustomerID = claims.Subject
	}
	if claims.CustomerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Simple unique ID generator
func generateJTI() string {
	return strconv.FormatInt(time.Now().UnixNano(), 16)
}
