// Package ipauth resolves a request's client IP to a persistent user record.
// The mapping is a convenience for a trusted internal network, not a
// security control.
package ipauth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleamarket/models"
)

type ctxKey struct{}

// Middleware looks up the caller's IP, creating a user on first sight and
// refreshing the sliding expiration window otherwise. The resolved user is
// attached to the request context for downstream handlers.
func Middleware(db *gorm.DB, expiryDays int, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			user, err := resolve(db, ip, expiryDays, log)
			if err != nil {
				log.Error("identity resolution failed", zap.String("ip", ip), zap.Error(err))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "server error",
					"error":   err.Error(),
				})
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the user resolved by Middleware.
func FromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*models.User)
	return user, ok
}

// ClientIP extracts the caller's address from RemoteAddr, stripping the port
// and normalizing IPv4-mapped IPv6 and loopback forms.
func ClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ip = strings.TrimPrefix(ip, "::ffff:")
	if ip == "::1" {
		ip = "127.0.0.1"
	}
	return ip
}

func resolve(db *gorm.DB, ip string, expiryDays int, log *zap.Logger) (*models.User, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(expiryDays) * 24 * time.Hour)

	var rec models.IPAddress
	err := db.Where("ip = ?", ip).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user := models.User{
			Status:    models.StatusActive,
			LastLogin: now,
			ExpiresAt: expiresAt,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		// A failure here leaves an orphan user row; accepted, not retried.
		if err := db.Create(&models.IPAddress{IP: ip, UserID: user.ID}).Error; err != nil {
			return nil, err
		}
		log.Info("new user created", zap.String("ip", ip), zap.Uint("user_id", user.ID))
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := db.First(&user, rec.UserID).Error; err != nil {
		return nil, err
	}
	updates := map[string]any{
		"last_login": now,
		"expires_at": expiresAt,
	}
	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	user.LastLogin = now
	user.ExpiresAt = expiresAt
	return &user, nil
}
