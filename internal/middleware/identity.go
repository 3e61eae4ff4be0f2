package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userIDKey is the echo context key JWTAuth stores the caller's id under.
const userIDKey = "user_id"

// UserID returns the authenticated caller set by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(userIDKey).(uint64)
	return id, ok && id != 0
}

// rateSubject identifies the caller for rate limiting; anonymous requests
// share the "anon" bucket of their IP.
func rateSubject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
