package service

import "errors"

// Sentinel errors. The text of each is the OAuth error code it maps to, so
// handlers and redirects can use err.Error() directly.
var (
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidClient           = errors.New("invalid_client")
	ErrInvalidGrant            = errors.New("invalid_grant")
	ErrInvalidScope            = errors.New("invalid_scope")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")
	ErrUnsupportedResponseType = errors.New("unsupported_response_type")
	ErrAccessDenied            = errors.New("access_denied")
	ErrInvalidRedirectURI      = errors.New("invalid_redirect_uri")
	ErrInvalidClientMetadata   = errors.New("invalid_client_metadata")

	// Authorize failures that happen before the redirect target is trusted.
	ErrUnknownClient       = errors.New("unknown client")
	ErrRedirectURIMismatch = errors.New("redirect_uri does not match a registered uri")

	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidTicket      = errors.New("invalid login ticket")
)
