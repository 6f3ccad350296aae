package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type UserRole string

const (
	RoleSuperAdmin   UserRole = "SUPER_ADMIN"
	RolePartnerOwner UserRole = "PARTNER_OWNER"
	RolePartnerStaff UserRole = "PARTNER_STAFF"
)

// Tokens minted by the order service still say MERCHANT_*.
var roleAliases = map[UserRole]UserRole{
	"MERCHANT_OWNER": RolePartnerOwner,
	"MERCHANT_STAFF": RolePartnerStaff,
}

type Claims struct {
	UserID      string   `json:"userId"`
	SessionID   string   `json:"sessionId"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	PartnerID   *string  `json:"partnerId,omitempty"`
	MerchantID  *string  `json:"merchantId,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Name        *string  `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Partner returns the partner the token is scoped to.
func (c *Claims) Partner() string {
	for _, v := range []*string{c.PartnerID, c.MerchantID} {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}

func (c *Claims) NormalizedRole() UserRole {
	if alias, ok := roleAliases[c.Role]; ok {
		return alias
	}
	return c.Role
}

func ParseBearerToken(authHeader string) string {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func VerifyAccessToken(tokenString string, secret string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token required")
	}
	if secret == "" {
		return nil, errors.New("jwt secret is not configured")
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, errors.New("token expired")
	}
	return claims, nil
}

// IssueAccessToken signs claims with HS256 and the given lifetime.
func IssueAccessToken(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
