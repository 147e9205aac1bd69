package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"stationrent-backend/internal/config"
	"stationrent-backend/internal/domain"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/security"
)

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Middleware authenticates and authorizes requests against the level
// configured for the matched route.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := config.SecurityAdmin
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				level = config.GetSecurityLevel(r.Method, tpl)
			}
		}

		// Public endpoint - skip auth
		if level == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authorization token is not provided")
			return
		}

		claims, err := m.tokenManager.ValidateToken(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error())
			return
		}

		if roleLevel(claims.Role) < level {
			logger.Warn("Access denied", "path", r.URL.Path, "userID", claims.UserID, "role", claims.Role)
			writeMessage(w, http.StatusForbidden, "FORBIDDEN", "insufficient role for this endpoint")
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func extractToken(r *http.Request) (string, bool) {
	token := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func roleLevel(role domain.Role) config.SecurityLevel {
	switch role {
	case domain.RoleAdmin:
		return config.SecurityAdmin
	case domain.RoleStaff:
		return config.SecurityStaff
	case domain.RoleCustomer:
		return config.SecurityCustomer
	}
	return config.SecurityPublic
}
