package accounts

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidPasswordLength   = "INVALID_PASSWORD_LENGTH"
	TextCodeInvalidEmail            = "INVALID_EMAIL"
	TextCodeInvalidUsername         = "INVALID_USERNAME"
	TextCodePasswordMismatch        = "PASSWORD_MISMATCH"
	TextCodeUsernameTaken           = "USERNAME_TAKEN"
	TextCodeEmailTaken              = "EMAIL_TAKEN"
	TextCodeAlreadyActivated        = "ALREADY_ACTIVATED"
	TextCodeActivationKeyNotExpired = "ACTIVATION_KEY_NOT_EXPIRED"
	TextCodeActivationKeyNotFound   = "ACTIVATION_KEY_NOT_FOUND"
	TextCodeActivationKeyExpired    = "ACTIVATION_KEY_EXPIRED"
	TextCodeUsernameNotFound        = "USERNAME_NOT_FOUND"
	TextCodeEmailNotFound           = "EMAIL_NOT_FOUND"
	TextCodeAccountNotFound         = "ACCOUNT_NOT_FOUND"
	TextCodeArtifactNotFound        = "ARTIFACT_NOT_FOUND"
	TextCodeInvalidResetKey         = "INVALID_OR_EXPIRED_RESET_KEY"
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeAccountNotActivated     = "ACCOUNT_NOT_ACTIVATED"
	TextCodeIncorrectPassword       = "INCORRECT_CURRENT_PASSWORD"
	TextCodeTokenExpired            = "TOKEN_EXPIRED"
	TextCodeTokenMalformed          = "TOKEN_MALFORMED"
	TextCodeTokenInvalidSignature   = "TOKEN_INVALID_SIGNATURE"
)

// ErrInvalidPasswordLength is returned when a password is outside [6,100].
var ErrInvalidPasswordLength = goerrors.New("password must be between 6 and 100 characters", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidPasswordLength).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidEmail is returned for malformed email addresses.
var ErrInvalidEmail = goerrors.New("invalid email address", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidUsername is returned for empty or oversized usernames.
var ErrInvalidUsername = goerrors.New("username must be between 1 and 50 characters", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidUsername).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordMismatch is returned when the confirmation does not match.
var ErrPasswordMismatch = goerrors.New("passwords do not match", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

var ErrUsernameTaken = goerrors.New("username is already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

var ErrEmailTaken = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

var ErrAlreadyActivated = goerrors.New("account is already activated", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyActivated).
	WithCode(goerrors.CodeConflict)

// ErrActivationKeyNotExpired blocks reissue while the current key is live.
var ErrActivationKeyNotExpired = goerrors.New("activation key has not expired yet", goerrors.CategoryConflict).
	WithTextCode(TextCodeActivationKeyNotExpired).
	WithCode(goerrors.CodeConflict)

var ErrActivationKeyNotFound = goerrors.New("activation key not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeActivationKeyNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrActivationKeyExpired = goerrors.New("activation key has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeActivationKeyExpired).
	WithCode(goerrors.CodeBadRequest)

var ErrUsernameNotFound = goerrors.New("username not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUsernameNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrEmailNotFound = goerrors.New("email not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeEmailNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountNotFound is returned by stores when no account matches and by
// operations whose authenticated account no longer exists.
var ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrArtifactNotFound is returned by stores when no activation or reset key
// matches. Operations translate it to a flow specific error.
var ErrArtifactNotFound = goerrors.New("credential artifact not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeArtifactNotFound).
	WithCode(goerrors.CodeNotFound)

var ErrInvalidOrExpiredResetKey = goerrors.New("invalid or expired password reset key", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidResetKey).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is the single error for unknown usernames and wrong
// passwords.
var ErrInvalidCredentials = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

var ErrAccountNotActivated = goerrors.New("account is not activated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActivated).
	WithCode(goerrors.CodeForbidden)

var ErrIncorrectCurrentPassword = goerrors.New("current password is incorrect", goerrors.CategoryAuth).
	WithTextCode(TextCodeIncorrectPassword).
	WithCode(goerrors.CodeBadRequest)

var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenInvalidSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalidSignature).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenError reports whether err is one of the token verification errors.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenInvalidSignature)
}

// passthrough returns rich errors untouched and wraps anything else as an
// internal failure.
func passthrough(err error, msg string) error {
	if err == nil {
		return nil
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
