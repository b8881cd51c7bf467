package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nifgashim/trek-api/internal/models"
)

type contextKey string

const UserIDKey contextKey = "user_id"

var ErrScannerKeyInvalid = errors.New("scanner key invalid or expired")

// AuthorizeScanner resolves an X-Scanner-Key header into the operator name
// recorded on check-ins, bumping last_used_at as a side effect.
func (h *AuthHandler) AuthorizeScanner(key string) (string, error) {
	if key == "" {
		return "", ErrScannerKeyInvalid
	}
	var keyModel models.ScannerKey
	if err := h.db.Where("key = ?", key).First(&keyModel).Error; err != nil {
		return "", ErrScannerKeyInvalid
	}
	if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
		return "", ErrScannerKeyInvalid
	}
	h.db.Model(&keyModel).Update("last_used_at", time.Now())
	return keyModel.Name, nil
}

// AdminMiddleware guards raw (non-huma) admin routes with the JWT cookie,
// refreshing the cookie once it is past half its lifetime.
func (h *AuthHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("auth_token")
		if err != nil {
			if err == http.ErrNoCookie {
				http.Error(w, "Unauthorized: No token found", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		token, err := jwt.Parse(cookie.Value, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(h.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		userIDFloat, ok := claims["user_id"].(float64)
		if !ok {
			http.Error(w, "Unauthorized: Invalid token claims", http.StatusUnauthorized)
			return
		}
		userID := uint(userIDFloat)

		// Sliding session: refresh once past the halfway point.
		if exp, ok := claims["exp"].(float64); ok {
			remaining := time.Until(time.Unix(int64(exp), 0))
			if remaining < TokenDuration/2 {
				if newToken, err := h.GenerateToken(userID); err == nil {
					http.SetCookie(w, &http.Cookie{
						Name:     "auth_token",
						Value:    newToken,
						Expires:  time.Now().Add(TokenDuration),
						HttpOnly: true,
						Path:     "/",
					})
				}
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
