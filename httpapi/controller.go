// Package httpapi exposes the account operations over HTTP with fiber. The
// routes mirror the "/user" resource: authenticate, createAccount,
// activateAccount, requestNewActivationKey, forgotPassword, resetPassword,
// updatePassword, updateUserDetails and the administrator endpoints.
package httpapi

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// Registrar creates and activates accounts.
type Registrar interface {
	Register(ctx context.Context, req accounts.RegistrationRequest) (uuid.UUID, error)
	Activate(ctx context.Context, key string) error
	Reissue(ctx context.Context, username string) error
}

// PasswordManager resets and changes passwords.
type PasswordManager interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, key, password, confirm string) error
	ChangePassword(ctx context.Context, username, current, password string) error
}

// ProfileService reads and edits accounts.
type ProfileService interface {
	Current(ctx context.Context, id uuid.UUID) (*accounts.Account, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update accounts.ProfileUpdate) (*accounts.Account, error)
	List(ctx context.Context, limit, offset int) ([]*accounts.Account, error)
}

// LoginService issues and checks bearer tokens.
type LoginService interface {
	jwtware.TokenAuthenticator
	Login(ctx context.Context, username, password string) (string, error)
}

// Sweeper removes abandoned pending accounts.
type Sweeper interface {
	Sweep(ctx context.Context, grace time.Duration) (int, error)
}

type ControllerRoutes struct {
	Base                    string
	Authenticate            string
	CreateAccount           string
	ActivateAccount         string
	RequestNewActivationKey string
	ForgotPassword          string
	ResetPassword           string
	UpdatePassword          string
	UpdateUserDetails       string
	Me                      string
	RemoveNotActivated      string
}

type Controller struct {
	Debug        bool
	Logger       accounts.Logger
	Routes       *ControllerRoutes
	Registrar    Registrar
	Passwords    PasswordManager
	Profiles     ProfileService
	Auth         LoginService
	Reaper       Sweeper
	ErrorHandler fiber.ErrorHandler
	principalKey string
}

type ControllerOption func(*Controller) *Controller

func WithRegistrar(r Registrar) ControllerOption {
	return func(c *Controller) *Controller { c.Registrar = r; return c }
}

func WithPasswords(p PasswordManager) ControllerOption {
	return func(c *Controller) *Controller { c.Passwords = p; return c }
}

func WithProfiles(p ProfileService) ControllerOption {
	return func(c *Controller) *Controller { c.Profiles = p; return c }
}

func WithAuth(a LoginService) ControllerOption {
	return func(c *Controller) *Controller { c.Auth = a; return c }
}

func WithReaper(s Sweeper) ControllerOption {
	return func(c *Controller) *Controller { c.Reaper = s; return c }
}

func WithLogger(l accounts.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller { c.Debug = debug; return c }
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       accounts.NopLogger(),
		principalKey: "user",
		Routes: &ControllerRoutes{
			Base:                    "/user",
			Authenticate:            "/authenticate",
			CreateAccount:           "/createAccount",
			ActivateAccount:         "/activateAccount",
			RequestNewActivationKey: "/requestNewActivationKey",
			ForgotPassword:          "/forgotPassword",
			ResetPassword:           "/resetPassword",
			UpdatePassword:          "/updatePassword",
			UpdateUserDetails:       "/updateUserDetails",
			Me:                      "/me",
			RemoveNotActivated:      "/removeNotActivatedAccounts",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = ErrorResponse(c.Logger)
	}

	if c.Registrar == nil || c.Passwords == nil || c.Profiles == nil || c.Auth == nil {
		panic("Missing account services in http controller...")
	}

	return c
}

// Register mounts the routes on r.
func (ctl *Controller) Register(r fiber.Router) {
	authenticated := jwtware.New(jwtware.Config{
		Authenticator: ctl.Auth,
		ContextKey:    ctl.principalKey,
	})
	admin := jwtware.New(jwtware.Config{
		Authenticator: ctl.Auth,
		ContextKey:    ctl.principalKey,
		MinimumRole:   accounts.RoleAdmin,
	})

	g := r.Group(ctl.Routes.Base)

	g.Post(ctl.Routes.Authenticate, ctl.Authenticate)
	g.Post(ctl.Routes.CreateAccount, ctl.CreateAccount)
	g.Post(ctl.Routes.ActivateAccount, ctl.ActivateAccount)
	g.Post(ctl.Routes.RequestNewActivationKey, ctl.RequestNewActivationKey)
	g.Post(ctl.Routes.ForgotPassword, ctl.ForgotPassword)
	g.Post(ctl.Routes.ResetPassword, ctl.ResetPassword)

	g.Put(ctl.Routes.UpdatePassword, authenticated, ctl.UpdatePassword)
	g.Put(ctl.Routes.UpdateUserDetails, authenticated, ctl.UpdateUserDetails)
	g.Get(ctl.Routes.Me, authenticated, ctl.Me)

	g.Get("", admin, ctl.List)
	if ctl.Reaper != nil {
		g.Post(ctl.Routes.RemoveNotActivated, admin, ctl.RemoveNotActivatedAccounts)
	}
}

// Authenticate answers {"bearer": token}. Every login failure is a 401.
func (ctl *Controller) Authenticate(c *fiber.Ctx) error {
	payload := new(AuthenticatePayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	token, err := ctl.Auth.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		ctl.Logger.Info("authentication failed", "username", payload.Username, "error", err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && (richErr.Category == goerrors.CategoryAuth) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": richErr.Message,
				"code":  richErr.TextCode,
			})
		}
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"bearer": token})
}

func (ctl *Controller) CreateAccount(c *fiber.Ctx) error {
	payload := new(CreateAccountPayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}

	id, err := ctl.Registrar.Register(c.UserContext(), accounts.RegistrationRequest{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (ctl *Controller) ActivateAccount(c *fiber.Ctx) error {
	payload := new(ActivateAccountPayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if err := ctl.Registrar.Activate(c.UserContext(), payload.ActivationKey); err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Account activated."})
}

func (ctl *Controller) RequestNewActivationKey(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return validationFailed(c, fmt.Errorf("username query parameter is required"))
	}

	if err := ctl.Registrar.Reissue(c.UserContext(), username); err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Activation key sent."})
}

func (ctl *Controller) ForgotPassword(c *fiber.Ctx) error {
	payload := ForgotPasswordPayload{Email: c.Query("email")}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if err := ctl.Passwords.RequestReset(c.UserContext(), payload.Email); err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password reset email sent."})
}

func (ctl *Controller) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}

	err := ctl.Passwords.ResetPassword(c.UserContext(), c.Query("key"), payload.NewPassword, payload.ConfirmPassword)
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password successfully reset."})
}

func (ctl *Controller) UpdatePassword(c *fiber.Ctx) error {
	principal, ok := jwtware.PrincipalFrom(c, ctl.principalKey)
	if !ok {
		return ctl.ErrorHandler(c, jwtware.ErrJWTMissingOrMalformed)
	}

	payload := new(UpdatePasswordPayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	err := ctl.Passwords.ChangePassword(c.UserContext(), principal.Username, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password updated successfully."})
}

func (ctl *Controller) UpdateUserDetails(c *fiber.Ctx) error {
	principal, ok := jwtware.PrincipalFrom(c, ctl.principalKey)
	if !ok {
		return ctl.ErrorHandler(c, jwtware.ErrJWTMissingOrMalformed)
	}

	payload := new(UpdateUserDetailsPayload)
	if err := c.BodyParser(payload); err != nil {
		return ctl.badBody(c, err)
	}
	if err := payload.Validate(); err != nil {
		return validationFailed(c, err)
	}

	if ctl.Debug {
		fmt.Println("======= UPDATE USER DETAILS ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("==================================")
	}

	account, err := ctl.Profiles.UpdateProfile(c.UserContext(), principal.AccountID, accounts.ProfileUpdate{
		Username: payload.Username,
		Email:    payload.Email,
	})
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(account)
}

func (ctl *Controller) Me(c *fiber.Ctx) error {
	principal, ok := jwtware.PrincipalFrom(c, ctl.principalKey)
	if !ok {
		return ctl.ErrorHandler(c, jwtware.ErrJWTMissingOrMalformed)
	}

	account, err := ctl.Profiles.Current(c.UserContext(), principal.AccountID)
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	return c.JSON(account)
}

// List returns accounts, paged with ?limit= and ?offset=.
func (ctl *Controller) List(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return validationFailed(c, err)
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return validationFailed(c, err)
	}

	list, err := ctl.Profiles.List(c.UserContext(), limit, offset)
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}

	if ctl.Debug {
		fmt.Println(print.MaybePrettyJSON(list))
	}

	return c.JSON(list)
}

// RemoveNotActivatedAccounts runs a sweep immediately with the reaper's
// configured grace period.
func (ctl *Controller) RemoveNotActivatedAccounts(c *fiber.Ctx) error {
	removed, err := ctl.Reaper.Sweep(c.UserContext(), 0)
	if err != nil {
		return ctl.ErrorHandler(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (ctl *Controller) badBody(c *fiber.Ctx, err error) error {
	ctl.Logger.Debug("failed to parse request body", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "failed to parse request body",
		"code":  TextCodeValidationFailed,
	})
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
