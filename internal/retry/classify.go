package retry

import (
	"errors"
	"net/http"

	"ytbatch/internal/services"
)

// Class buckets a failed remote call for retry handling.
type Class string

const (
	// ClassRateLimited marks sustained pressure responses. Retryable on
	// the slow schedule.
	ClassRateLimited Class = "rate_limited"
	// ClassBudgetExhausted marks a spent daily quota. Never retried here;
	// the identity pool handles failover instead.
	ClassBudgetExhausted Class = "budget_exhausted"
	// ClassTransient marks network errors and 5xx responses. Retryable on
	// the fast schedule.
	ClassTransient Class = "transient"
	// ClassNotFound marks a missing remote resource.
	ClassNotFound Class = "not_found"
	// ClassPermissionDenied marks an authorization failure.
	ClassPermissionDenied Class = "permission_denied"
	// ClassTerminal marks everything unclassifiable. Unknown failures are
	// never retried.
	ClassTerminal Class = "terminal"
)

// Retryable reports whether the policy may re-attempt a call that failed
// with this class.
func (c Class) Retryable() bool {
	return c == ClassRateLimited || c == ClassTransient
}

// String returns the class name for journal rows and logs.
func (c Class) String() string {
	return string(c)
}

// Classify maps an error from the remote write client onto a retry class.
// Anything that is not a structured [services.APIError] is terminal.
func Classify(err error) Class {
	if err == nil {
		return ClassTerminal
	}

	var apiErr *services.APIError
	if !errors.As(err, &apiErr) {
		return ClassTerminal
	}

	switch {
	case apiErr.StatusCode == 0:
		// Connection-level failure before any HTTP response.
		return ClassTransient
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return ClassRateLimited
	case apiErr.StatusCode == http.StatusForbidden:
		switch apiErr.Reason {
		case services.ReasonQuotaExceeded, services.ReasonDailyLimit:
			return ClassBudgetExhausted
		case services.ReasonRateLimit, services.ReasonUserRateLimit:
			return ClassRateLimited
		default:
			return ClassPermissionDenied
		}
	case apiErr.StatusCode == http.StatusUnauthorized:
		return ClassPermissionDenied
	case apiErr.StatusCode == http.StatusNotFound:
		return ClassNotFound
	case apiErr.StatusCode >= 500:
		return ClassTransient
	default:
		return ClassTerminal
	}
}
