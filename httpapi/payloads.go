package httpapi

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// AuthenticatePayload is the login body.
type AuthenticatePayload struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (r AuthenticatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// CreateAccountPayload carries a registration. Field rules are enforced by
// the activation manager so that errors come back in a stable order.
type CreateAccountPayload struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type ActivateAccountPayload struct {
	ActivationKey string `json:"activationKey" form:"activationKey"`
}

func (r ActivateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ActivationKey, validation.Required),
	)
}

type ForgotPasswordPayload struct {
	Email string `query:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordPayload struct {
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type UpdatePasswordPayload struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
}

func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
	)
}

type UpdateUserDetailsPayload struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
}

func (r UpdateUserDetailsPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, is.Email),
	)
}

// FormatValidationErrorToMap flattens ozzo field errors for a JSON body.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if errs, ok := err.(validation.Errors); ok {
		for field, e := range errs {
			out[field] = e.Error()
		}
		return out
	}
	out["payload"] = err.Error()
	return out
}
