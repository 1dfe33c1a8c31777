package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DeviceHeader = "X-Device-Id"
	DeviceCookie = "device_id"

	maxDeviceIDLen  = 128
	deviceCookieTTL = 365 * 24 * time.Hour
)

type ctxKeyDeviceID struct{}

func DeviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyDeviceID{}).(string)
	return v
}

// WithDeviceID injects a device id into context. Useful for testing.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyDeviceID{}, id)
}

// DeviceID resolves the caller's device from the X-Device-Id header or the
// device_id cookie. A device seen for the first time gets a fresh id, set as
// a cookie and echoed in the header.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := cleanDeviceID(r.Header.Get(DeviceHeader))
		if id == "" {
			if c, err := r.Cookie(DeviceCookie); err == nil {
				id = cleanDeviceID(c.Value)
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(deviceCookieTTL / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(DeviceHeader, id)
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
	})
}

func cleanDeviceID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxDeviceIDLen || strings.ContainsAny(v, " ;,\"") {
		return ""
	}
	return v
}
