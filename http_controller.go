package hospital

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	msgServerError     = "Server error"
	msgInvalidBody     = "Invalid request body"
	msgDeliveryPrefix  = "Failed to send OTP: "
	msgInviteDelivery  = "Patient created, but failed to send email. "
	msgResendDelivery  = "Failed to send activation email: "
	msgActivationDone  = "Account activated successfully. You may now login."
	msgPatientDeleted  = "Patient deleted permanently"
	defaultDeliveryMsg = "Email error"
)

// RouteRegistrar captures the router methods used by the account controller
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterAccountRoutes mounts the account routes on app, which is expected
// to be the /api/users group. Search is registered before the id routes.
func RegisterAccountRoutes(app RouteRegistrar, deps HandlerDeps, opts ...AccountControllerOption) *AccountController {
	controller := NewAccountController(deps, opts...)

	app.Post("/register", controller.Register).SetName("users.register")
	app.Post("/register-init", controller.RegisterInit).SetName("users.register-init")
	app.Post("/verify-otp", controller.VerifyOTP).SetName("users.verify-otp")
	app.Post("/resend-otp", controller.ResendOTP).SetName("users.resend-otp")
	app.Post("/login", controller.Login).SetName("users.login")

	app.Post("/invite", controller.Invite, controller.AuthGate).SetName("users.invite")
	app.Post("/resend-activation", controller.ResendActivation, controller.AuthGate).SetName("users.resend-activation")
	app.Post("/send-activation-otp", controller.SendActivationOTP).SetName("users.send-activation-otp")
	app.Post("/activate", controller.Activate).SetName("users.activate")

	app.Get("/search", controller.Search, controller.AuthGate).SetName("users.search")
	app.Put("/:id", controller.Update, controller.AuthGate).SetName("users.update")
	app.Delete("/:id", controller.Delete, controller.AuthGate).SetName("users.delete")
	app.Get("/:id", controller.Show, controller.AuthGate).SetName("users.show")

	return controller
}

// AccountController exposes the account commands as JSON endpoints. Every
// body carries success and, on failure, message.
type AccountController struct {
	Debug       bool
	Logger      Logger
	ContextKey  string
	SearchLimit int
	// AuthGate protects the staff and profile routes
	AuthGate router.MiddlewareFunc

	repo              RepositoryManager
	register          *RegisterAccountHandler
	registerInit      *InitRegistrationHandler
	verifyOTP         *VerifyOTPHandler
	resendOTP         *ResendOTPHandler
	login             *LoginHandler
	invite            *InvitePatientHandler
	resendActivation  *ResendActivationHandler
	sendActivationOTP *SendActivationOTPHandler
	activate          *ActivateAccountHandler
	update            *UpdateAccountHandler
	deletePatient     *DeletePatientHandler
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// WithAuthGate sets the middleware that validates bearer tokens
func WithAuthGate(gate router.MiddlewareFunc) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.AuthGate = gate
		return c
	}
}

// WithClaimsContextKey sets the locals key the auth gate stores claims under
func WithClaimsContextKey(key string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithSearchLimit(limit int) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if limit > 0 {
			c.SearchLimit = limit
		}
		return c
	}
}

func NewAccountController(deps HandlerDeps, opts ...AccountControllerOption) *AccountController {
	deps = deps.withDefaults()

	c := &AccountController{
		Logger:      deps.Logger,
		ContextKey:  DefaultContextKey,
		SearchLimit: DefaultSearchLimit,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.AuthGate == nil {
		panic("Missing auth gate in account controller...")
	}

	if deps.Issuer == nil || deps.Sessions == nil {
		panic("Missing code or session issuer in account controller...")
	}

	c.repo = deps.Repo
	c.register = NewRegisterAccountHandler(deps)
	c.registerInit = NewInitRegistrationHandler(deps)
	c.verifyOTP = NewVerifyOTPHandler(deps)
	c.resendOTP = NewResendOTPHandler(deps)
	c.login = NewLoginHandler(deps)
	c.invite = NewInvitePatientHandler(deps)
	c.resendActivation = NewResendActivationHandler(deps)
	c.sendActivationOTP = NewSendActivationOTPHandler(deps)
	c.activate = NewActivateAccountHandler(deps)
	c.update = NewUpdateAccountHandler(deps)
	c.deletePatient = NewDeletePatientHandler(deps)

	return c
}

func (a *AccountController) Register(ctx router.Context) error {
	payload := new(RegisterAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "register", err)
	}

	var resp *RegisterAccountResponse
	payload.OnResponse = func(r *RegisterAccountResponse) { resp = r }

	if err := a.register.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.Session != nil {
		return ctx.JSON(router.StatusOK, router.ViewContext{
			"success": true,
			"message": "User registered",
			"token":   resp.Session.Token,
			"user":    resp.Account.Summary(),
		})
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "User registered",
		"user": router.ViewContext{
			"_id":   resp.Account.ID.String(),
			"email": resp.Account.Email,
		},
	})
}

func (a *AccountController) RegisterInit(ctx router.Context) error {
	payload := new(InitRegistrationMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "register-init", err)
	}

	var resp *InitRegistrationResponse
	payload.OnResponse = func(r *InitRegistrationResponse) { resp = r }

	if err := a.registerInit.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.DeliveryErr != nil {
		return a.deliveryFailed(ctx, router.StatusOK, msgDeliveryPrefix, resp.DeliveryErr)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "OTP sent to email",
		"email":   resp.Account.Email,
	})
}

func (a *AccountController) VerifyOTP(ctx router.Context) error {
	payload := new(VerifyOTPMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "verify-otp", err)
	}

	var resp *VerifyOTPResponse
	payload.OnResponse = func(r *VerifyOTPResponse) { resp = r }

	if err := a.verifyOTP.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Verified",
		"token":   resp.Session.Token,
		"user":    resp.Account.Summary(),
	})
}

func (a *AccountController) ResendOTP(ctx router.Context) error {
	payload := new(ResendOTPMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "resend-otp", err)
	}

	var resp *ResendOTPResponse
	payload.OnResponse = func(r *ResendOTPResponse) { resp = r }

	if err := a.resendOTP.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.DeliveryErr != nil {
		return a.deliveryFailed(ctx, router.StatusOK, msgDeliveryPrefix, resp.DeliveryErr)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "OTP resent",
	})
}

func (a *AccountController) Login(ctx router.Context) error {
	payload := new(LoginMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "login", err)
	}

	var resp *LoginResponse
	payload.OnResponse = func(r *LoginResponse) { resp = r }

	if err := a.login.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"token":   resp.Session.Token,
		"user": router.ViewContext{
			"_id":       resp.Account.ID.String(),
			"firstName": resp.Account.FirstName,
			"email":     resp.Account.Email,
			"role":      string(resp.Account.Role),
		},
	})
}

func (a *AccountController) Invite(ctx router.Context) error {
	payload := new(InvitePatientMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "invite", err)
	}
	payload.Actor = a.actor(ctx)
	a.dump("invite", payload)

	var resp *ActivationIssuedResponse
	payload.OnResponse = func(r *ActivationIssuedResponse) { resp = r }

	if err := a.invite.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.DeliveryErr != nil {
		return a.deliveryFailed(ctx, router.StatusInternalServerError, msgInviteDelivery, resp.DeliveryErr)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Invitation sent",
	})
}

func (a *AccountController) ResendActivation(ctx router.Context) error {
	payload := new(ResendActivationMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "resend-activation", err)
	}
	payload.Actor = a.actor(ctx)
	a.dump("resend-activation", payload)

	var resp *ActivationIssuedResponse
	payload.OnResponse = func(r *ActivationIssuedResponse) { resp = r }

	if err := a.resendActivation.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.DeliveryErr != nil {
		return a.deliveryFailed(ctx, router.StatusInternalServerError, msgResendDelivery, resp.DeliveryErr)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Activation email resent",
	})
}

func (a *AccountController) SendActivationOTP(ctx router.Context) error {
	payload := new(SendActivationOTPMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "send-activation-otp", err)
	}

	var resp *ResendOTPResponse
	payload.OnResponse = func(r *ResendOTPResponse) { resp = r }

	if err := a.sendActivationOTP.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	if resp.DeliveryErr != nil {
		return a.deliveryFailed(ctx, router.StatusInternalServerError, msgDeliveryPrefix, resp.DeliveryErr)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "OTP sent to email.",
	})
}

func (a *AccountController) Activate(ctx router.Context) error {
	payload := new(ActivateAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "activate", err)
	}

	if err := a.activate.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, false)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": msgActivationDone,
	})
}

// PatientSearchResult is one row of the staff patient search
type PatientSearchResult struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	IsAccountActivated bool   `json:"isAccountActivated"`
}

// Search answers with a bare JSON array. An empty query short circuits to [].
func (a *AccountController) Search(ctx router.Context) error {
	term := strings.TrimSpace(ctx.Query("q", ""))
	if term == "" {
		return ctx.JSON(router.StatusOK, []PatientSearchResult{})
	}

	if !a.actor(ctx).IsStaff() {
		return a.forbidden(ctx)
	}

	records, err := a.repo.Accounts().SearchPatients(ctx.Context(), term, a.SearchLimit)
	if err != nil {
		a.Logger.Error("patient search failed", "term", term, "error", err)
		return ctx.JSON(router.StatusInternalServerError, []PatientSearchResult{})
	}

	results := make([]PatientSearchResult, 0, len(records))
	for _, record := range records {
		results = append(results, PatientSearchResult{
			ID:                 record.ID.String(),
			Name:               record.FullName(),
			Phone:              record.Phone,
			Email:              record.Email,
			IsAccountActivated: record.IsAccountActivated,
		})
	}

	return ctx.JSON(router.StatusOK, results)
}

func (a *AccountController) Update(ctx router.Context) error {
	payload := new(UpdateAccountMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "update", err)
	}
	payload.ID = ctx.Param("id", "")
	payload.Actor = a.actor(ctx)

	var resp *UpdateAccountResponse
	payload.OnResponse = func(r *UpdateAccountResponse) { resp = r }

	if err := a.update.Execute(ctx.Context(), *payload); err != nil {
		return a.fail(ctx, err, true)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"user":    resp.Account,
	})
}

func (a *AccountController) Show(ctx router.Context) error {
	id, err := ParseAccountID(ctx.Param("id", ""))
	if err != nil {
		return a.fail(ctx, err, true)
	}

	account, err := a.repo.Accounts().FindByID(ctx.Context(), id)
	if err != nil {
		if IsNotFound(err) {
			return a.fail(ctx, ErrAccountNotFound, true)
		}
		return a.fail(ctx, err, true)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"user":    account,
	})
}

func (a *AccountController) Delete(ctx router.Context) error {
	msg := DeletePatientMessage{
		Actor: a.actor(ctx),
		ID:    ctx.Param("id", ""),
	}

	var resp *DeletePatientResponse
	msg.OnResponse = func(r *DeletePatientResponse) { resp = r }

	if err := a.deletePatient.Execute(ctx.Context(), msg); err != nil {
		return a.fail(ctx, err, true)
	}

	if len(resp.FileErrors) > 0 {
		a.Logger.Warn("patient deleted with leftover files", "id", resp.AccountID, "files", len(resp.FileErrors))
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": msgPatientDeleted,
	})
}

func (a *AccountController) actor(ctx router.Context) ActorRef {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return ActorRef{}
	}
	return ActorFromClaims(claims)
}

func (a *AccountController) dump(route string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("account request", "route", route, "payload", print.MaybePrettyJSON(payload))
}

func (a *AccountController) badRequest(ctx router.Context, route string, err error) error {
	a.Logger.Error("account request parse payload", "route", route, "error", err)
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"success": false,
		"message": msgInvalidBody,
	})
}

func (a *AccountController) forbidden(ctx router.Context) error {
	return ctx.JSON(router.StatusForbidden, router.ViewContext{
		"success": false,
		"message": ErrForbidden.Message,
	})
}

func (a *AccountController) deliveryFailed(ctx router.Context, status int, prefix string, err error) error {
	reason := DeliveryReason(err)
	if reason == "" {
		reason = defaultDeliveryMsg
	}
	a.Logger.Error("notification delivery failed", "error", err)
	return ctx.JSON(status, router.ViewContext{
		"success": false,
		"message": prefix + reason,
	})
}

// fail maps a command error to a response. Most failures answer 200 with
// success false, byID selects 404 for missing records on the id routes.
func (a *AccountController) fail(ctx router.Context, err error, byID bool) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category == goerrors.CategoryInternal {
		a.Logger.Error("account request failed", "error", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{
			"success": false,
			"message": msgServerError,
		})
	}

	status := router.StatusOK
	switch richErr.TextCode {
	case TextCodeForbidden:
		status = router.StatusForbidden
	case TextCodeInvalidID, TextCodeNotPatient:
		status = router.StatusBadRequest
	case TextCodeRecordNotFound:
		status = http.StatusNotFound
	case TextCodeAccountNotFound:
		if byID {
			status = http.StatusNotFound
		}
	}

	return ctx.JSON(status, router.ViewContext{
		"success": false,
		"message": richErr.Message,
	})
}
