package security

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/aryaranggads/powerpay/internal/core/domain"
)

// Sign computes the gateway notification signature: hex-encoded SHA-512 of
// orderID || statusCode || grossAmount || serverKey.
func Sign(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// Verify checks a provided notification signature against the one computed
// from the stored transaction's fields. The comparison is constant-time so
// the check leaks nothing through timing.
func Verify(orderID, statusCode, grossAmount, provided, serverKey string) (bool, error) {
	if serverKey == "" {
		return false, domain.ErrMisconfiguredSecret
	}
	expected := Sign(orderID, statusCode, grossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1, nil
}
