package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fkhayef/nebenkosten/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// LandlordIDKey is the context key for the authenticated landlord ID
	LandlordIDKey ContextKey = "landlord_id"
)

// Claims are the bearer token claims accepted by the API
type Claims struct {
	LandlordID int64 `json:"landlord_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates an HS256 bearer token and stores the landlord
// ID from its claims in the request context
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := ParseToken(parts[1], secret)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), LandlordIDKey, claims.LandlordID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken validates tokenString and returns its claims
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.LandlordID <= 0 {
		return nil, errors.New("auth: missing landlord_id")
	}
	return claims, nil
}

// DevLandlordMiddleware allows setting the landlord ID via the
// X-Test-Landlord-ID header (DEV ONLY). Requests without the header act
// as landlord 1.
func DevLandlordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		landlordID := int64(1)
		if v := r.Header.Get("X-Test-Landlord-ID"); v != "" {
			if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
				landlordID = id
			}
		}
		ctx := context.WithValue(r.Context(), LandlordIDKey, landlordID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLandlordID returns a copy of ctx carrying the landlord ID
func WithLandlordID(ctx context.Context, landlordID int64) context.Context {
	return context.WithValue(ctx, LandlordIDKey, landlordID)
}

// GetLandlordID extracts the landlord ID from the request context
func GetLandlordID(ctx context.Context) (int64, bool) {
	landlordID, ok := ctx.Value(LandlordIDKey).(int64)
	return landlordID, ok
}
