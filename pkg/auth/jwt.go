package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// DoctorClaims carries the authenticated doctor in the subject claim.
type DoctorClaims struct {
	jwt.RegisteredClaims
}

// TokenValidator resolves the caller's doctor ID from a bearer token.
type TokenValidator interface {
	ParseDoctorID(token string) (uuid.UUID, error)
}

// JWTService validates HS256 tokens issued by the session provider.
type JWTService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) *JWTService {
	return &JWTService{secret: []byte(secret), issuer: issuer}
}

func (s *JWTService) ParseDoctorID(tokenStr string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &DoctorClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	doctorID, err := uuid.Parse(claims.Subject)
	if err != nil || doctorID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a doctor id", ErrInvalidToken)
	}
	return doctorID, nil
}

// GenerateToken issues a token for doctorID. Used by tests and local tooling.
func (s *JWTService) GenerateToken(doctorID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DoctorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   doctorID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
