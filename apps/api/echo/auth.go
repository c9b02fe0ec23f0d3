package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
	"github.com/grupka/grupka/storage/cache"
)

const (
	contextUserKey   = "user"
	contextClaimsKey = "userClaims"
)

var (
	errMissingToken   = core.NewUnauthorizedError("missing or malformed jwt")
	errInvalidToken   = core.NewUnauthorizedError("invalid or expired jwt")
	errRefreshExpired = core.NewUnauthorizedError("refresh has expired")

	NowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
}

// TokenIssuer signs and verifies HS256 access tokens.
type TokenIssuer struct {
	issuer       string
	key          []byte
	expiration   time.Duration
	refreshLimit time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		issuer:       conf.AppName,
		key:          []byte(conf.SecretKey),
		expiration:   conf.Server.JWTExpirationDelta,
		refreshLimit: conf.Server.JWTRefreshExpirationDelta,
	}
}

// Issue returns a signed token for usr.
// origIat carries the first issue time over refreshes.
func (ti *TokenIssuer) Issue(usr user.User, origIat ...int64) (string, error) {
	now := NowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiration)),
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse verifies the signature and the registered claims of a token.
func (ti *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return ti.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithTimeFunc(NowFunc),
	)
	if err != nil {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Refresh re-issues a token while within the refresh window of the original login.
func (ti *TokenIssuer) Refresh(usr user.User, claims Claims) (string, error) {
	limit := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshLimit)
	if NowFunc().After(limit) {
		return "", errRefreshExpired
	}
	return ti.Issue(usr, claims.OrigIssuedAt)
}

func bearerToken(ctx echo.Context) (string, bool) {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// jwtMiddleware authenticates the request and puts the active User and its Claims in the context.
func jwtMiddleware(tokens *TokenIssuer, revocations cache.RevocationStore, usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, ok := bearerToken(ctx)
			if !ok {
				return errMissingToken
			}
			claims, err := tokens.Parse(token)
			if err != nil {
				return err
			}

			rctx := ctx.Request().Context()
			revoked, err := revocations.IsRevoked(rctx, claims.ID)
			if err != nil {
				return errors.Wrap(err, "checking token revocation")
			}
			if revoked {
				return errInvalidToken
			}

			usr, err := usrSvc.GetByID(rctx, claims.Subject)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					return errInvalidToken
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return user.ErrAccountDeactivated
			}

			ctx.Set(contextClaimsKey, *claims)
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func contextUser(ctx echo.Context) user.User {
	usr, _ := ctx.Get(contextUserKey).(user.User)
	return usr
}

func contextClaims(ctx echo.Context) Claims {
	claims, _ := ctx.Get(contextClaimsKey).(Claims)
	return claims
}
