package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"genfity-order-reports/internal/auth"
)

type contextKey string

const authContextKey contextKey = "authContext"

type AuthContext struct {
	UserID      string
	SessionID   string
	Role        auth.UserRole
	Email       string
	PartnerID   string
	IsOwner     bool
	Permissions []string
}

func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	value := ctx.Value(authContextKey)
	if value == nil {
		return nil, false
	}
	ac, ok := value.(*AuthContext)
	return ac, ok
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	writeAuthErrorDebug(w, status, message, "")
}

func writeAuthErrorDebug(w http.ResponseWriter, status int, message string, debug string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	code := "UNAUTHORIZED"
	if status == http.StatusForbidden {
		code = "FORBIDDEN"
	}
	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	}

	if os.Getenv("APP_ENV") == "development" && strings.TrimSpace(debug) != "" {
		payload["debug"] = debug
	}

	_ = json.NewEncoder(w).Encode(payload)
}

// Authenticate verifies a token and builds the partner context. Staff need
// the permission mapped to path.
func Authenticate(token string, jwtSecret string, path string, method string) (*AuthContext, int, string, error) {
	claims, err := auth.VerifyAccessToken(token, jwtSecret)
	if err != nil {
		return nil, http.StatusUnauthorized, "Authorization token required", err
	}

	role := claims.NormalizedRole()
	if role != auth.RolePartnerOwner && role != auth.RolePartnerStaff && role != auth.RoleSuperAdmin {
		return nil, http.StatusForbidden, "Partner access required", nil
	}

	partnerID := claims.Partner()
	if partnerID == "" {
		return nil, http.StatusUnauthorized, "Partner not found", nil
	}

	if role == auth.RolePartnerStaff {
		if perm := auth.GetPermissionForAPI(path, method); perm != nil && !auth.HasPermission(claims.Permissions, *perm) {
			return nil, http.StatusForbidden, "You do not have permission to access this resource", nil
		}
	}

	return &AuthContext{
		UserID:      claims.UserID,
		SessionID:   claims.SessionID,
		Role:        role,
		Email:       claims.Email,
		PartnerID:   partnerID,
		IsOwner:     role != auth.RolePartnerStaff,
		Permissions: claims.Permissions,
	}, http.StatusOK, "", nil
}

func PartnerAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			authCtx, status, message, err := Authenticate(token, jwtSecret, r.URL.Path, r.Method)
			if authCtx == nil {
				debug := ""
				if err != nil {
					debug = err.Error()
				}
				writeAuthErrorDebug(w, status, message, debug)
				return
			}

			ctx := WithAuthContext(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
