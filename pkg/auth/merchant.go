package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"geohunt/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const merchantIDKey = "merchant_id"

var ErrInvalidMerchantToken = errors.New("invalid merchant token")

type MerchantClaims struct {
	MerchantName string `json:"merchant_name,omitempty"`
	jwt.RegisteredClaims
}

// MerchantAuth authenticates merchant principals with HS256 bearer tokens.
type MerchantAuth struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewMerchantAuth(secret, issuer string, ttl time.Duration) *MerchantAuth {
	return &MerchantAuth{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

func (m *MerchantAuth) IssueToken(merchantID, merchantName string) (string, error) {
	now := time.Now()
	claims := MerchantClaims{
		MerchantName: merchantName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   merchantID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *MerchantAuth) ParseToken(tokenString string) (*MerchantClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &MerchantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMerchantToken, err)
	}

	claims, ok := parsed.Claims.(*MerchantClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidMerchantToken
	}

	return claims, nil
}

func (m *MerchantAuth) MerchantAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Info("missing merchant bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "merchant token is required"})
			return
		}

		claims, err := m.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			log.Info("invalid merchant token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid merchant token"})
			return
		}

		c.Set(merchantIDKey, claims.Subject)
		c.Next()
	}
}

func MerchantFromContext(c *gin.Context) (string, bool) {
	id := c.GetString(merchantIDKey)
	return id, id != ""
}
