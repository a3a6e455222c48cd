package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

const (
	userIDKey    = "user_id"
	userIDHeader = "X-User-ID"
	tokenParam   = "token"
)

// Authenticator resolves the verified user id of a request from an HS256
// bearer token whose subject is the user id. With auth disabled the
// X-User-ID header is trusted instead.
type Authenticator struct {
	secret   []byte
	disabled bool
}

// NewAuthenticator creates an authenticator for secret.
func NewAuthenticator(secret string, disabled bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), disabled: disabled}
}

// Middleware rejects requests without a verified identity.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := a.identify(c.Request())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: domain.ErrorBody{
					Kind:    "unauthenticated",
					Message: err.Error(),
				}})
			}
			c.Set(userIDKey, userID)

			req := c.Request()
			ctx := clog.WithLogger(req.Context(), clog.FromContext(req.Context()).With("user_id", userID))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func (a *Authenticator) identify(r *http.Request) (string, error) {
	if a.disabled {
		if id := r.Header.Get(userIDHeader); id != "" {
			return id, nil
		}
		return "", errors.New("missing " + userIDHeader + " header")
	}

	raw := strings.TrimPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
	if raw == "" {
		// Browsers cannot set headers on websocket upgrades.
		raw = r.URL.Query().Get(tokenParam)
	}
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return ParseToken(a.secret, raw)
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(secret []byte, raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// MintToken issues a token for userID valid for ttl.
func MintToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// UserID returns the identity set by the middleware.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
