package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/confsys/core"
	"github.com/trezcool/confsys/core/user"
)

var (
	tokenContextKey = "userToken"
	contextUserKey  = "user"

	NowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	IsStaff      bool   `json:"is_staff,omitempty"`
	IsSuperuser  bool   `json:"is_superuser,omitempty"`
}

type jwtAuth struct {
	conf   *core.Config
	config middleware.JWTConfig
}

func newJWTAuth(conf *core.Config) jwtAuth {
	return jwtAuth{
		conf: conf,
		config: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    tokenContextKey,
			Claims:        new(Claims),
		},
	}
}

// middleware returns the JWT middleware; when optional, requests without an Authorization header pass anonymously.
func (a jwtAuth) middleware(optional bool) echo.MiddlewareFunc {
	config := a.config
	if optional {
		config.Skipper = func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		}
	}
	return middleware.JWTWithConfig(config)
}

func (a jwtAuth) claims(usr user.User, origIat ...int64) *Claims {
	now := NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		IsStaff:      usr.IsStaff,
		IsSuperuser:  usr.IsSuperuser,
	}
}

// generateToken generates a signed JWT token string representing the user Claims.
func (a jwtAuth) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.config.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.config.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// GenerateToken returns a signed token for usr, as issued by the login endpoint.
func GenerateToken(conf *core.Config, usr user.User) (string, error) {
	a := newJWTAuth(conf)
	return a.generateToken(a.claims(usr))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the authenticated caller, loading it once per request.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// getOptionalContextUser returns the zero User for anonymous requests.
func getOptionalContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if _, err := getContextClaims(ctx); err != nil {
		return user.User{}, nil
	}
	return getContextUser(ctx, svc)
}

func (a jwtAuth) refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.generateToken(a.claims(usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
