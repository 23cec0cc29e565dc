package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/patient-api/pkg/auth"
	"github.com/jwalitptl/patient-api/pkg/errors"
	"github.com/jwalitptl/patient-api/pkg/httputil"
)

// ContextDoctorID is the gin context key holding the authenticated doctor.
const ContextDoctorID = "doctorID"

type AuthMiddleware struct {
	tokens auth.TokenValidator
}

func NewAuthMiddleware(tokens auth.TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores the doctor ID in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthenticated(nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.RespondWithError(c, errors.Unauthenticated(nil))
			return
		}

		doctorID, err := m.tokens.ParseDoctorID(strings.TrimSpace(parts[1]))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthenticated(err))
			return
		}

		c.Set(ContextDoctorID, doctorID)
		c.Next()
	}
}

// DoctorID returns the authenticated doctor, or uuid.Nil when absent.
func DoctorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextDoctorID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
