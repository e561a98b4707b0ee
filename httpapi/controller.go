package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	auth "github.com/pulseapp/pulse-auth"
	"github.com/pulseapp/pulse-auth/middleware/jwtware"
)

// Registrar is the registration and HOC review surface used by the routes.
type Registrar interface {
	Register(ctx context.Context, req auth.RegistrationRequest) (*auth.RegistrationResult, error)
	ApproveHOC(ctx context.Context, actor auth.ActorRef, id uuid.UUID) (*auth.AccountView, error)
	RejectHOC(ctx context.Context, actor auth.ActorRef, id uuid.UUID, reason string) (*auth.AccountView, error)
	ListPendingHOC(ctx context.Context) ([]auth.AccountView, error)
}

// Authenticator is the credential and token surface used by the routes.
type Authenticator interface {
	CheckEmailAvailability(ctx context.Context, email string) (bool, error)
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	CurrentAccount(ctx context.Context, token string) (*auth.Account, error)
	Logout(ctx context.Context, token string)
}

// Profiles is the self service settings surface used by the routes.
type Profiles interface {
	Profile(ctx context.Context, id uuid.UUID) (*auth.AccountView, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req auth.ProfileUpdateRequest) (*auth.AccountView, error)
	ChangePassword(ctx context.Context, id uuid.UUID, req auth.ChangePasswordRequest) error
}

type Routes struct {
	Prefix   string
	Auth     string
	Admin    string
	Settings string
	Health   string
	Metrics  string
}

type Controller struct {
	Logger      auth.Logger
	Registrar   Registrar
	Auther      Authenticator
	Profiles    Profiles
	Routes      *Routes
	AdminEmails map[string]struct{}
	Limiter     *IPRateLimiter
	Metrics     http.Handler
	CORSOrigins []string
	Environment string
	now         func() time.Time
}

type ControllerOption func(*Controller) *Controller

func WithLogger(logger auth.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRegistrar(r Registrar) ControllerOption {
	return func(c *Controller) *Controller {
		c.Registrar = r
		return c
	}
}

func WithAuthenticator(a Authenticator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = a
		return c
	}
}

func WithProfiles(p Profiles) ControllerOption {
	return func(c *Controller) *Controller {
		c.Profiles = p
		return c
	}
}

// WithAdminEmails sets the accounts allowed to review HOC requests.
func WithAdminEmails(emails ...string) ControllerOption {
	return func(c *Controller) *Controller {
		for _, email := range emails {
			if email = auth.NormalizeEmail(email); email != "" {
				c.AdminEmails[email] = struct{}{}
			}
		}
		return c
	}
}

// WithRateLimiter sets the limiter applied to signup and login.
func WithRateLimiter(l *IPRateLimiter) ControllerOption {
	return func(c *Controller) *Controller {
		c.Limiter = l
		return c
	}
}

// WithMetricsHandler exposes h under Routes.Metrics.
func WithMetricsHandler(h http.Handler) ControllerOption {
	return func(c *Controller) *Controller {
		c.Metrics = h
		return c
	}
}

func WithCORSOrigins(origins ...string) ControllerOption {
	return func(c *Controller) *Controller {
		c.CORSOrigins = append(c.CORSOrigins, origins...)
		return c
	}
}

func WithEnvironment(env string) ControllerOption {
	return func(c *Controller) *Controller {
		c.Environment = env
		return c
	}
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) *Controller {
		if now != nil {
			c.now = now
		}
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:      auth.DefaultLogger(),
		AdminEmails: map[string]struct{}{},
		Limiter:     NewIPRateLimiter(5, 10),
		Routes: &Routes{
			Prefix:   "/api",
			Auth:     "/auth",
			Admin:    "/admin",
			Settings: "/settings",
			Health:   "/health",
			Metrics:  "/metrics",
		},
		now: time.Now,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil {
		panic("Missing Registrar in http controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in http controller...")
	}

	if c.Profiles == nil {
		panic("Missing Profiles in http controller...")
	}

	return c
}

// NewApp returns a fiber app with the error handler and every route mounted.
func NewApp(c *Controller, cfg ...fiber.Config) *fiber.App {
	config := fiber.Config{}
	if len(cfg) > 0 {
		config = cfg[0]
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = NewErrorHandler(c.Logger)
	}
	if config.AppName == "" {
		config.AppName = "pulse-auth"
	}
	config.DisableStartupMessage = true

	app := fiber.New(config)
	app.Use(recover.New())
	if len(c.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(c.CORSOrigins, ","),
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(app, c)

	app.Use(func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts the controller on router.
func RegisterRoutes(router fiber.Router, c *Controller) {
	if c.Metrics != nil {
		router.Get(c.Routes.Metrics, adaptor.HTTPHandler(c.Metrics))
	}

	api := router.Group(c.Routes.Prefix)
	api.Get(c.Routes.Health, c.Health)

	bearer := jwtware.New(jwtware.Config{
		Resolver:     c.Auther,
		ErrorHandler: c.authError,
	})

	admin := jwtware.New(jwtware.Config{
		Resolver:            c.Auther,
		ErrorHandler:        c.authError,
		ValidationListeners: []jwtware.ValidationListener{c.requireAdmin},
	})

	hoc := jwtware.New(jwtware.Config{
		Resolver:            c.Auther,
		ErrorHandler:        c.authError,
		ValidationListeners: []jwtware.ValidationListener{requireHOC},
	})

	authGroup := api.Group(c.Routes.Auth)
	authGroup.Get("/check-email", c.CheckEmail)
	authGroup.Post("/signup", c.Limiter.Handler(), c.Signup)
	authGroup.Post("/login", c.Limiter.Handler(), c.Login)
	authGroup.Post("/logout", c.Logout)
	authGroup.Get("/me", bearer, c.Me)

	api.Get(c.Routes.Settings+"/hoc-tools", hoc, c.HOCTools)

	settings := api.Group(c.Routes.Settings, bearer)
	settings.Get("/profile", c.ProfileShow)
	settings.Put("/profile", c.ProfileUpdate)
	settings.Put("/change-password", c.ChangePassword)

	adminGroup := api.Group(c.Routes.Admin, admin)
	adminGroup.Get("/pending-hocs", c.PendingHOCs)
	adminGroup.Patch("/approve-hoc/:userId", c.ApproveHOC)
	adminGroup.Patch("/reject-hoc/:userId", c.RejectHOC)
}

// authError hands middleware failures to the app error handler.
func (c *Controller) authError(_ *fiber.Ctx, err error) error {
	return err
}

func (c *Controller) requireAdmin(_ *fiber.Ctx, account *auth.Account) error {
	if _, ok := c.AdminEmails[auth.NormalizeEmail(account.Email)]; ok {
		return nil
	}
	return ErrForbidden.Clone().WithMetadata(map[string]any{
		"account_id": account.ID.String(),
	})
}

// requireHOC admits approved HOC accounts only. Pending requests are refused.
func requireHOC(_ *fiber.Ctx, account *auth.Account) error {
	if account.IsHOC() {
		return nil
	}
	return ErrHOCRequired.Clone().WithMetadata(map[string]any{
		"account_id": account.ID.String(),
		"state":      account.State,
	})
}

func currentAccount(ctx *fiber.Ctx) (*auth.Account, error) {
	account, ok := jwtware.AccountFromLocals(ctx)
	if !ok {
		return nil, jwtware.ErrJWTMissingOrMalformed.Clone()
	}
	return account, nil
}

func bearerToken(ctx *fiber.Ctx) string {
	header := ctx.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
