package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blogtalk/internal/httperr"
	"blogtalk/internal/logctx"
	"blogtalk/internal/services"
	"blogtalk/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CallerKey holds the *services.Caller of an authenticated request.
const CallerKey = "caller"

// SessionUserKey is the session field the main site stores the user id in.
const SessionUserKey = "user_id"

var errInvalidToken = errors.New("invalid token")

// SignToken issues an HS256 bearer token for userID.
func SignToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(raw, secret string) (uint, error) {
	if secret == "" {
		return 0, errInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidToken
	}
	return uint(id), nil
}

// bearer returns the token of an "Authorization: Bearer <token>" header.
func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// sessionUserID reads the user id from the cookie session, if the sessions
// middleware is installed and the user is logged in.
func sessionUserID(c *gin.Context) (uint, bool) {
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return 0, false
	}
	switch v := sessions.Default(c).Get(SessionUserKey).(type) {
	case uint:
		return v, v > 0
	case int:
		return uint(v), v > 0
	case int64:
		return uint(v), v > 0
	}
	return 0, false
}

// LoadCaller resolves the caller from a bearer token, falling back to the
// session cookie. Requests without either continue as anonymous; a bad
// token is rejected outright.
func LoadCaller(users store.IdentityStore, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			userID uint
			ok     bool
		)
		if raw, has := bearer(c.GetHeader("Authorization")); has {
			id, err := parseToken(raw, jwtSecret)
			if err != nil {
				logctx.From(c.Request.Context()).Debug("bearer token rejected", "err", err)
				httperr.Abort(c, http.StatusUnauthorized, "unauthenticated", errInvalidToken.Error())
				return
			}
			userID, ok = id, true
		} else {
			userID, ok = sessionUserID(c)
		}

		if ok {
			u, err := users.UserByID(c.Request.Context(), userID)
			switch {
			case err == nil:
				c.Set(CallerKey, services.CallerFromUser(u))
			case errors.Is(err, store.ErrNotFound):
				// 用户已被删除，按匿名处理
			default:
				httperr.Write(c, err)
				return
			}
		}
		c.Next()
	}
}

// CallerFrom returns the request's caller, nil when anonymous.
func CallerFrom(c *gin.Context) *services.Caller {
	if v, ok := c.Get(CallerKey); ok {
		if caller, ok := v.(*services.Caller); ok {
			return caller
		}
	}
	return nil
}

// AuthRequired rejects anonymous requests with 401.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerFrom(c) == nil {
			httperr.Abort(c, http.StatusUnauthorized, "unauthenticated", "authentication required")
			return
		}
		c.Next()
	}
}
