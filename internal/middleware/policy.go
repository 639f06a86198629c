package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/diogopelaes/cemep-digital/internal/authz"
	"github.com/diogopelaes/cemep-digital/internal/models"
	appErrors "github.com/diogopelaes/cemep-digital/pkg/errors"
	"github.com/diogopelaes/cemep-digital/pkg/response"
)

// ContextConditionalKey marks requests admitted conditionally: the route
// handler still has to settle an ownership comparison against the fetched
// object before serving the request.
const ContextConditionalKey = "policyConditional"

// Authorize runs the coarse admission phase of the access policy for the
// given action. Anonymous principals are rejected with 401, denied ones
// with 403. Conditional admissions pass through flagged for the handler.
func Authorize(policy authz.Policy, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)

		switch policy.Admit(principal, action) {
		case authz.Allow:
			c.Next()
		case authz.Conditional:
			c.Set(ContextConditionalKey, true)
			c.Next()
		default:
			if !principal.Authenticated {
				response.Error(c, appErrors.ErrUnauthorized)
			} else {
				response.Error(c, appErrors.ErrForbidden)
			}
			c.Abort()
		}
	}
}

// PrincipalFromContext reconstructs the requesting principal from the JWT
// claims attached by the JWT middleware. Absent claims yield the anonymous
// principal.
func PrincipalFromContext(c *gin.Context) authz.Principal {
	claimsValue, exists := c.Get(ContextUserKey)
	if !exists {
		return authz.Principal{}
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	if !ok {
		return authz.Principal{}
	}
	return authz.PrincipalFromClaims(claims)
}

// IsConditional reports whether the admission phase deferred the decision
// to an object-level ownership check.
func IsConditional(c *gin.Context) bool {
	return c.GetBool(ContextConditionalKey)
}
