package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/scyra/scyra/internal/auth/domain"
	billingdomain "github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/llm"
	profiledomain "github.com/scyra/scyra/internal/profile/domain"
	"github.com/scyra/scyra/internal/ratelimit"
	researchdomain "github.com/scyra/scyra/internal/research/domain"
	searchdomain "github.com/scyra/scyra/internal/search/domain"
	trendsdomain "github.com/scyra/scyra/internal/trends/domain"
)

type errorPayload struct {
	Type    string
	Message string
}

// errorResponse keeps error as a plain string so callers can render it
// directly; the type travels as a sibling discriminator.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{
			Error: payload.Message,
			Type:  payload.Type,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationMessage(err),
		}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, profiledomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "No credits remaining. Please upgrade your plan.",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "Rate limit exceeded. Please try again in a minute.",
		}
	case isUpstreamError(err):
		return http.StatusInternalServerError, errorPayload{
			Type:    "upstream_error",
			Message: "Failed to generate trends. Please try again.",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, trendsdomain.ErrInvalidNiche),
		errors.Is(err, billingdomain.ErrInvalidCheckout),
		errors.Is(err, billingdomain.ErrInvalidPlan),
		errors.Is(err, billingdomain.ErrInvalidPayload):
		return true
	default:
		return false
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, trendsdomain.ErrInvalidNiche):
		return "Please provide a valid niche of at most 50 characters"
	default:
		return "invalid request"
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, billingdomain.ErrInvalidSignature):
		return true
	default:
		return false
	}
}

func isUpstreamError(err error) bool {
	switch {
	case errors.Is(err, trendsdomain.ErrUpstream),
		errors.Is(err, researchdomain.ErrMalformedResponse),
		errors.Is(err, llm.ErrUnavailable),
		errors.Is(err, searchdomain.ErrUnavailable),
		errors.Is(err, billingdomain.ErrProviderFailure):
		return true
	default:
		return false
	}
}

// classifyErrorForLog feeds the request-log middleware an error type and
// code without rendering a response.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Type
}
