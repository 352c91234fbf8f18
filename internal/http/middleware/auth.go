package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pitchpanel/pitchpanel-backend/internal/http/response"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/envutil"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

// Claims issued by the external auth subsystem. Verified and premium travel
// in the token but the entitlement gate re-reads them from the user row, so a
// stale token cannot mint credits.
type authClaims struct {
	Verified bool `json:"verified"`
	Premium  bool `json:"premium"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(envutil.String("JWT_SECRET", "")),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, fmt.Errorf("missing bearer token"))
			c.Abort()
			return
		}

		claims := &authClaims{}
		parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return am.secret, nil
		})
		if err != nil || !parsed.Valid {
			am.log.Debug("token rejected", "error", err)
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, fmt.Errorf("invalid token"))
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil || userID == uuid.Nil {
			response.RespondError(c, http.StatusUnauthorized, apierr.CodeUnauthenticated, fmt.Errorf("invalid subject"))
			c.Abort()
			return
		}

		rd := &requestdata.RequestData{
			UserID:   userID,
			Verified: claims.Verified,
			Premium:  claims.Premium,
		}
		c.Request = c.Request.WithContext(requestdata.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// extractToken also accepts ?token= so EventSource clients, which cannot set
// headers, can authenticate the SSE endpoint.
func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
