package httputil

// Machine-readable error codes returned alongside error messages.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInternalError      = "internal_error"

	CodeMissingAuth       = "missing_auth"
	CodeInvalidAuthHeader = "invalid_auth_header"
	CodeInvalidToken      = "invalid_token"

	CodeEmailRequired      = "email_required"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodePasswordRequired   = "password_required"
	CodePasswordTooShort   = "password_too_short"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeInvalidCredentials = "invalid_credentials"

	CodeInvalidListingID = "invalid_listing_id"
	CodeListingNotFound  = "listing_not_found"
	CodeForbidden        = "forbidden"
	CodeTitleRequired    = "title_required"
	CodeInvalidPrice     = "invalid_price"
	CodeUploadTooLarge   = "upload_too_large"
)
