package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Identity and quota errors
	ErrIdentityNotFound    = fmt.Errorf("identity not found")
	ErrNoAvailableIdentity = fmt.Errorf("no available identity")
	ErrQuotaExhausted      = fmt.Errorf("daily quota exhausted")
	ErrGroupExhausted      = fmt.Errorf("identity group exhausted")

	// Remote API errors
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrRateLimited      = fmt.Errorf("rate limited by remote API")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrPermissionDenied = fmt.Errorf("permission denied")

	// Batch and journal errors
	ErrBatchNotFound = fmt.Errorf("batch not found")
	ErrBatchPaused   = fmt.Errorf("batch is paused")
	ErrBatchComplete = fmt.Errorf("batch already complete")
	ErrTaskNotFound  = fmt.Errorf("task not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
