package auth

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// WebhookTokenHeader carries the shared secret configured in the AdaPay
// dashboard.
const WebhookTokenHeader = "X-Adapay-Token"

// HashWebhookToken returns the bcrypt hash to store in configuration.
func HashWebhookToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// WebhookTokenMiddleware rejects notifications whose token does not match
// tokenHash. An empty hash disables the check.
func WebhookTokenMiddleware(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tokenHash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(WebhookTokenHeader)
			if token == "" || bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)) != nil {
				slog.Error("webhook rejected, invalid token", "remote_addr", r.RemoteAddr)
				http.Error(w, "invalid webhook token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
