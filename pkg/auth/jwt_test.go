package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDoctorIDRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "health-app")
	doctorID := uuid.New()

	token, err := svc.GenerateToken(doctorID, time.Hour)
	require.NoError(t, err)

	got, err := svc.ParseDoctorID(token)
	require.NoError(t, err)
	assert.Equal(t, doctorID, got)
}

func TestParseDoctorIDRejects(t *testing.T) {
	svc := NewJWTService("secret", "health-app")
	doctorID := uuid.New()

	expired, err := svc.GenerateToken(doctorID, -time.Minute)
	require.NoError(t, err)

	wrongKey, err := NewJWTService("other", "health-app").GenerateToken(doctorID, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTService("secret", "someone-else").GenerateToken(doctorID, time.Hour)
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, DoctorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			Issuer:    "health-app",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, DoctorClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: doctorID.String(), Issuer: "health-app"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"bad subject":  badSubject,
		"no expiry":    noExpiry,
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ParseDoctorID(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
