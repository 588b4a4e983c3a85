package paylink

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	productID := uuid.New()

	token, err := signer.Sign("0xMerchant", "25.00", &productID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "0xMerchant", claims.MerchantAddress)
	assert.Equal(t, "25.00", claims.Amount)
	require.NotNil(t, claims.ProductID)
	assert.Equal(t, productID, *claims.ProductID)
}

func TestSign_NoProduct(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	token, err := signer.Sign("0xMerchant", "5.00", nil)
	require.NoError(t, err)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Nil(t, claims.ProductID)
}

func TestVerify_ExpiredToken(t *testing.T) {
	signer := NewSigner("test-secret", -time.Minute)

	token, err := signer.Sign("0xMerchant", "5.00", nil)
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	other := NewSigner("other-secret", time.Hour)

	token, err := signer.Sign("0xMerchant", "5.00", nil)
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)
	_, err := signer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNonHMAC(t *testing.T) {
	signer := NewSigner("test-secret", time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{MerchantAddress: "0xM"})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = signer.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSign_SignerFailure(t *testing.T) {
	orig := signToken
	t.Cleanup(func() { signToken = orig })
	signToken = func(*jwt.Token, []byte) (string, error) { return "", errors.New("boom") }

	signer := NewSigner("test-secret", time.Hour)
	_, err := signer.Sign("0xMerchant", "5.00", nil)
	assert.Error(t, err)
}
