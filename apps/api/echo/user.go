package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core/user"
	metricsvc "github.com/grupka/grupka/services/metrics"
)

const passwordResetRequested = "If the email address supplied is associated with an active account on this system, " +
	"an email will arrive in your inbox shortly with instructions to reset your password."

type (
	userApi struct {
		*Deps
		tokens *TokenIssuer
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func registerUserAPI(g *echo.Group, auth, limit echo.MiddlewareFunc, tokens *TokenIssuer, deps *Deps) {
	api := userApi{Deps: deps, tokens: tokens}

	ag := g.Group("/auth")
	ag.POST("/register", api.register, limit)
	ag.POST("/login", api.login, limit)
	ag.POST("/password-reset", api.resetPassword, limit)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset, limit)
	ag.POST("/token-refresh", api.refreshToken, auth)
	ag.POST("/logout", api.logout, auth)

	pg := g.Group("/profile", auth)
	pg.GET("", api.profile)
	pg.PATCH("", api.updateProfile)
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := api.UserSvc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	api.recordEvent(metricsvc.UserRegistered)

	token, err := api.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return created(ctx, LoginResponse{Token: token, User: usr})
}

func (api *userApi) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := bindBody(ctx, &creds); err != nil {
		return err
	}
	usr, err := api.UserSvc.Authenticate(ctx.Request().Context(), creds)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.Issue(usr)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ok(ctx, LoginResponse{Token: token, User: usr})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.tokens.Refresh(contextUser(ctx), contextClaims(ctx))
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ok(ctx, TokenResponse{Token: token})
}

func (api *userApi) logout(ctx echo.Context) error {
	claims := contextClaims(ctx)
	expiresAt := NowFunc().Add(api.tokens.expiration)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := api.Revocations.Revoke(ctx.Request().Context(), claims.ID, expiresAt); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return noContent(ctx)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data user.PasswordResetRequest
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.UserSvc.RequestPasswordReset(ctx.Request().Context(), data.Email); err != nil {
		// do not return errors to attackers
		api.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ok(ctx, SuccessResponse{Success: passwordResetRequested})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if _, err := api.UserSvc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ok(ctx, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) profile(ctx echo.Context) error {
	return ok(ctx, contextUser(ctx))
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	var data user.UpdateProfile
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	usr, err := api.UserSvc.UpdateProfile(ctx.Request().Context(), contextUser(ctx).ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ok(ctx, usr)
}
