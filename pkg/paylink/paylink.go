package paylink

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid payment link token")
	ErrExpiredToken = errors.New("payment link has expired")
)

// Claims carries the payment terms bound into a payment link.
type Claims struct {
	MerchantAddress string     `json:"merchantAddress"`
	Amount          string     `json:"amount"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies signed payment-link tokens.
type Signer struct {
	secret []byte
	expiry time.Duration
}

var signToken = func(token *jwt.Token, secret []byte) (string, error) {
	return token.SignedString(secret)
}

// NewSigner creates a payment-link signer.
func NewSigner(secret string, expiry time.Duration) *Signer {
	return &Signer{secret: []byte(secret), expiry: expiry}
}

// Sign issues a token binding merchant, amount and an optional product.
func (s *Signer) Sign(merchantAddress, amount string, productID *uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		MerchantAddress: merchantAddress,
		Amount:          amount,
		ProductID:       productID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return signToken(token, s.secret)
}

// Verify parses a token and returns its claims.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
