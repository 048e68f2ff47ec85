package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"

	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

// Dev mode identity headers
const (
	DevUIDHeader  = "X-Dev-UID"
	DevRoleHeader = "X-Dev-Role"
)

// roleClaim is the custom claim carrying the school-management role.
const roleClaim = "role"

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type Middleware struct {
	AuthClient tokenVerifier
}

func NewMiddleware(client tokenVerifier) *Middleware {
	return &Middleware{AuthClient: client}
}

// context key
type contextKey string

const (
	UIDKey  contextKey = "uid"
	RoleKey contextKey = "role"
)

// Main middleware
func (m *Middleware) FirebaseAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "invalid Authorization header", http.StatusUnauthorized)
			return
		}

		tokenStr := parts[1]

		// Verify ID Token
		token, err := m.AuthClient.VerifyIDToken(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		claim, _ := token.Claims[roleClaim].(string)
		role := models.Role(claim)
		if !models.IsRole(role) {
			http.Error(w, "missing or unknown role claim", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), token.UID, role)))
	})
}

// DevAuth trusts identity headers. Only for local development.
func (m *Middleware) DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(DevUIDHeader))
		if uid == "" {
			http.Error(w, "missing "+DevUIDHeader+" header", http.StatusUnauthorized)
			return
		}
		role := models.Role(strings.TrimSpace(r.Header.Get(DevRoleHeader)))
		if role == "" {
			role = models.RoleDirector
		}
		if !models.IsRole(role) {
			http.Error(w, "unknown role", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), uid, role)))
	})
}

func withIdentity(ctx context.Context, uid string, role models.Role) context.Context {
	ctx = context.WithValue(ctx, UIDKey, uid)
	ctx = context.WithValue(ctx, RoleKey, role)
	_, ctx = logger.With(ctx, "uid", uid, "role", string(role))
	return ctx
}

// Helper to extract UID
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(UIDKey).(string)
	return uid
}

func Role(ctx context.Context) models.Role {
	role, _ := ctx.Value(RoleKey).(models.Role)
	return role
}
