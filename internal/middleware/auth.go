package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

var (
	errMissingToken = errors.New("missing authorization header")
	errTokenFormat  = errors.New("invalid authorization header format")
	errTokenExpired = errors.New("token expired")
	errTokenInvalid = errors.New("invalid token")
	errTokenClaims  = errors.New("invalid token claims")
)

// tokenFromRequest reads the bearer token. Browsers cannot set headers on a
// websocket handshake, so upgrade requests may pass it as ?access_token=.
func tokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, nil
			}
		}
		return "", errMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errTokenFormat
	}
	return parts[1], nil
}

// parseClaims validates an HS256 access token and returns user id and role.
func parseClaims(tokenString, jwtSecret string) (string, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", errTokenExpired
		}
		return "", "", errTokenInvalid
	}
	if !token.Valid {
		return "", "", errTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", errTokenClaims
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", "", errTokenClaims
	}
	role, ok := claims["role"].(string)
	if !ok {
		return "", "", errTokenClaims
	}
	return userID, role, nil
}

func withUser(r *http.Request, userID, role string) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRoleKey, role)
	return r.WithContext(ctx)
}

// AuthMiddleware validates JWT tokens and extracts user claims
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := tokenFromRequest(r)
			if err != nil {
				logger.Debug("Rejected request without usable token", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			userID, role, err := parseClaims(tokenString, jwtSecret)
			if err != nil {
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", userID),
				zap.String("role", role),
			)

			next.ServeHTTP(w, withUser(r, userID, role))
		})
	}
}

// OptionalAuth attaches user claims when a valid token is present and lets
// anonymous requests through. A token that is present but invalid is still
// rejected so a customer never silently checks out as a guest.
func OptionalAuth(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := tokenFromRequest(r)
			if errors.Is(err, errMissingToken) {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			userID, role, err := parseClaims(tokenString, jwtSecret)
			if err != nil {
				logger.Debug("Optional token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, withUser(r, userID, role))
		})
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
