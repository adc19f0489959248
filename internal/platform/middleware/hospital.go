package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

type contextKey string

// HospitalIDKey is the context key under which the caller's hospital id is stored.
const HospitalIDKey contextKey = "hospital_id"

// HospitalIDHeader carries the hospital scope for a request.
const HospitalIDHeader = "X-Hospital-ID"

var hospitalIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// HospitalContext returns middleware that resolves the hospital scope of a
// request and stores it on the request context. The hospital id is an opaque
// identifier supplied by the caller; it is not validated against a registry.
//
// Resolution order: JWT claim (set by the auth middleware), X-Hospital-ID
// header, hospital_id query parameter. Requests with no hospital scope pass
// through; handlers that require one reject them individually.
func HospitalContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			hospitalID := extractHospitalID(c)
			if hospitalID == "" {
				return next(c)
			}
			if !hospitalIDPattern.MatchString(hospitalID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital identifier")
			}

			ctx := context.WithValue(c.Request().Context(), HospitalIDKey, hospitalID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("hospital_id", hospitalID)

			return next(c)
		}
	}
}

func extractHospitalID(c echo.Context) string {
	// 1. JWT claim (set by the auth middleware)
	if hid, ok := c.Get("jwt_hospital_id").(string); ok && hid != "" {
		return hid
	}

	// 2. X-Hospital-ID header
	if hid := c.Request().Header.Get(HospitalIDHeader); hid != "" {
		return hid
	}

	// 3. Query parameter
	return c.QueryParam("hospital_id")
}

// HospitalFromContext retrieves the hospital id from context, or "" when the
// request carried no hospital scope.
func HospitalFromContext(ctx context.Context) string {
	hid, _ := ctx.Value(HospitalIDKey).(string)
	return hid
}
