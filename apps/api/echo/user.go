package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core/conference"
	"github.com/trezcool/confsys/core/paper"
	"github.com/trezcool/confsys/core/user"
)

type userApi struct {
	auth     jwtAuth
	svc      *user.Service
	confSvc  *conference.Service
	paperSvc *paper.Service
	validate *validator.Validate
}

func registerUserAPI(e *echo.Echo, jwt, rateLimit echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		auth:     newJWTAuth(deps.Conf),
		svc:      deps.UserSvc,
		confSvc:  deps.ConfSvc,
		paperSvc: deps.PaperSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	e.POST("/signup", api.signup)
	e.POST("/login", api.login, rateLimit)
	e.POST("/password-reset", api.resetPassword, rateLimit)
	e.POST("/password-reset-confirm", api.confirmPasswordReset, rateLimit)

	// authed endpoints
	e.POST("/token-refresh", api.refreshToken, jwt)
	e.GET("/profile", api.profile, jwt)
	e.POST("/logout", api.logout, jwt)
}

type (
	signupResponse struct {
		User  user.User `json:"user"`
		Token string    `json:"token"`
	}

	profileResponse struct {
		User                 user.User `json:"user"`
		ChairedConferenceIDs []string  `json:"chaired_conference_ids"`
		AuthoredPapers       int       `json:"authored_papers"`
	}
)

// Handlers

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	token, err := api.auth.generateToken(api.auth.claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, signupResponse{User: usr, Token: token})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	token, err := api.auth.generateToken(api.auth.claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	data.Clean()
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *userApi) profile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reqCtx := ctx.Request().Context()

	confIDs, err := api.confSvc.ChairedConferences(reqCtx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing chaired conferences")
	}
	papers, err := api.paperSvc.ListAuthored(reqCtx, usr)
	if err != nil {
		return errors.Wrap(err, "listing authored papers")
	}
	return ctx.JSON(http.StatusOK, profileResponse{User: usr, ChairedConferenceIDs: confIDs, AuthoredPapers: len(papers)})
}

// logout is a no-op: tokens are stateless and expire on their own.
func (api *userApi) logout(ctx echo.Context) error {
	return ctx.NoContent(http.StatusNoContent)
}
