// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are mapped to HTTP responses via the fail()
// helper in this package, giving clients a stable, machine-readable error
// taxonomy alongside human-readable messages. Codes are lowercase
// snake_case; generic codes mirror HTTP status semantics, domain-specific
// codes cover business failures a status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeCreateFailed  = "create_failed"
	ErrCodeUpdateFailed  = "update_failed"
	ErrCodeDeleteFailed  = "delete_failed"
	ErrCodeListFailed    = "list_failed"
	ErrCodeNameExhausted = "name_exhausted"
)
