package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/moneybotscharts/pkg/utils/response"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyHeader carries the API key. "Authorization: Bearer <key>" is accepted too.
const APIKeyHeader = "X-API-Key"

// AuthMiddleware checks the request API key against a bcrypt hash
func AuthMiddleware(apiKeyHash string) echo.MiddlewareFunc {
	var (
		mu       sync.RWMutex
		verified = map[string]bool{}
	)

	check := func(key string) bool {
		mu.RLock()
		ok := verified[key]
		mu.RUnlock()
		if ok {
			return true
		}
		if bcrypt.CompareHashAndPassword([]byte(apiKeyHash), []byte(key)) != nil {
			return false
		}
		mu.Lock()
		verified[key] = true
		mu.Unlock()
		return true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(APIKeyHeader)
			if key == "" {
				auth := c.Request().Header.Get("Authorization")
				if auth == "" {
					return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthorizationException, "Missing API key")
				}
				var found bool
				key, found = strings.CutPrefix(auth, "Bearer ")
				if !found {
					return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthorizationException, "Invalid Authorization header format")
				}
			}

			if !check(strings.TrimSpace(key)) {
				return response.ErrorResponse(c, http.StatusUnauthorized, response.AuthorizationException, "Invalid API key")
			}
			return next(c)
		}
	}
}
