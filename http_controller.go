package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

type ControllerRoutes struct {
	Token    string
	Register string
	Me       string
	Users    string
}

// Controller exposes the account and login routes.
type Controller struct {
	Manager *UserManager
	Auth    *Authenticator
	Logger  Logger
	Routes  *ControllerRoutes

	// ContextKey is the request locals key the protecting middleware
	// stores the resolved user under. Must match the middleware's.
	ContextKey string
}

type ControllerOption func(*Controller) *Controller

func NewController(manager *UserManager, auth *Authenticator, opts ...ControllerOption) *Controller {
	c := &Controller{
		Manager:    manager,
		Auth:       auth,
		Logger:     defLogger{},
		ContextKey: DefaultContextKey,
		Routes: &ControllerRoutes{
			Token:    "/api/user/token",
			Register: "/api/user",
			Me:       "/api/user/me",
			Users:    "/api/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing UserManager in users controller...")
	}

	if c.Auth == nil {
		panic("Missing Authenticator in users controller...")
	}

	return c
}

func WithControllerLogger(l Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithControllerContextKey aligns the controller with a middleware that
// stores the resolved user under a non-default locals key.
func WithControllerContextKey(key string) ControllerOption {
	return func(c *Controller) *Controller {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

// RegisterRoutes mounts the account routes. The protect handler guards
// every route that needs a resolved, active user.
func (ct *Controller) RegisterRoutes(app fiber.Router, protect fiber.Handler) {
	app.Post(ct.Routes.Token, ct.TokenPost)
	app.Post(ct.Routes.Register, ct.RegisterPost)

	app.Get(ct.Routes.Me, protect, ct.MeGet)

	app.Get(ct.Routes.Users, protect, ct.UsersList)
	app.Get(ct.Routes.Users+"/:username", protect, ct.UserGet)
	app.Patch(ct.Routes.Users+"/:username", protect, ct.UserPatch)
	app.Delete(ct.Routes.Users+"/:username", protect, ct.UserDelete)
}

// CredentialsPayload is the login form payload.
type CredentialsPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (p CredentialsPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

// TokenPost accepts username and password and returns a bearer token.
func (ct *Controller) TokenPost(c *fiber.Ctx) error {
	payload := new(CredentialsPayload)

	if err := c.BodyParser(payload); err != nil {
		ct.Logger.Error("token parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Failed to parse credentials",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	token, err := ct.Auth.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"detail": "Incorrect username or password",
			})
		}
		return ct.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// RegisterPayload is the signup payload.
type RegisterPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Email    string `form:"email" json:"email"`
	FullName string `form:"full_name" json:"full_name"`
}

// Validate will validate the payload
func (p RegisterPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required, validation.Length(3, 100)),
		validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&p.Email, is.Email),
		validation.Field(&p.FullName, validation.Length(0, 200)),
	)
}

// RegisterPost creates a new active account.
func (ct *Controller) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		ct.Logger.Error("register parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Failed to parse payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return ct.renderError(c, err)
	}

	user := &User{
		Username:     payload.Username,
		PasswordHash: hash,
		IsActive:     true,
		Email:        payload.Email,
		FullName:     payload.FullName,
	}

	if err := ct.Manager.Create(c.UserContext(), user); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"detail": "Username already registered",
			})
		}
		return ct.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// MeGet returns the account resolved by the middleware.
func (ct *Controller) MeGet(c *fiber.Ctx) error {
	user, ok := UserFromLocals(c, ct.ContextKey)
	if !ok {
		return DefaultAuthErrorHandler(c, ErrCouldNotValidate)
	}
	return c.JSON(user)
}

// UserGet returns the record for the username route parameter.
func (ct *Controller) UserGet(c *fiber.Ctx) error {
	user, err := ct.Manager.Get(c.UserContext(), c.Params("username"))
	if err != nil {
		return ct.renderError(c, err)
	}
	return c.JSON(user)
}

// UpdatePayload carries the fields a partial update may change.
type UpdatePayload struct {
	Email    *string `form:"email" json:"email"`
	FullName *string `form:"full_name" json:"full_name"`
	IsActive *bool   `form:"is_active" json:"is_active"`
	Password *string `form:"password" json:"password"`
}

// Validate will validate the payload
func (p UpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Email, is.Email),
		validation.Field(&p.Password, validation.Length(8, 100)),
	)
}

func (p UpdatePayload) fields() (Document, error) {
	fields := Document{}

	if p.Email != nil {
		fields[fieldEmail] = *p.Email
	}
	if p.FullName != nil {
		fields[fieldFullName] = *p.FullName
	}
	if p.IsActive != nil {
		fields[fieldIsActive] = *p.IsActive
	}
	if p.Password != nil {
		hash, err := HashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		fields[fieldPassword] = hash
	}

	return fields, nil
}

// UserPatch applies a partial update and returns the updated record.
func (ct *Controller) UserPatch(c *fiber.Ctx) error {
	payload := new(UpdatePayload)

	if err := c.BodyParser(payload); err != nil {
		ct.Logger.Error("update parse payload", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Failed to parse payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": err.Error(),
		})
	}

	fields, err := payload.fields()
	if err != nil {
		return ct.renderError(c, err)
	}

	username := c.Params("username")
	if err := ct.Manager.Update(c.UserContext(), username, fields); err != nil {
		return ct.renderError(c, err)
	}

	user, err := ct.Manager.Get(c.UserContext(), username)
	if err != nil {
		return ct.renderError(c, err)
	}

	return c.JSON(user)
}

// UserDelete removes the record. Always succeeds for absent usernames,
// matching the repository's idempotent delete.
func (ct *Controller) UserDelete(c *fiber.Ctx) error {
	if err := ct.Manager.Delete(c.UserContext(), c.Params("username")); err != nil {
		return ct.renderError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UsersList returns every account.
func (ct *Controller) UsersList(c *fiber.Ctx) error {
	records, err := ct.Manager.List(c.UserContext())
	if err != nil {
		return ct.renderError(c, err)
	}
	return c.JSON(records)
}

func (ct *Controller) renderError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	ct.Logger.Error("request failed",
		"error", richErr.Message,
		"category", richErr.Category,
		"path", c.OriginalURL(),
	)

	return c.Status(status).JSON(fiber.Map{
		"detail": richErr.Message,
	})
}
