// middleware.go

package main

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenTTL = 7 * 24 * time.Hour

type jwtClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

func (a *app) signToken(u *User) (string, error) {
	claims := jwtClaims{
		UserID: u.ID.Hex(),
		Email:  u.Email,
		Role:   u.Role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(tokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.cfg.JWTSecret)
}

// authRequired parses the bearer token and stores the identity claims on
// the request context.
func (a *app) authRequired(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		a.fail(c, errAuth("Missing bearer token"))
		return
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	token, err := jwt.ParseWithClaims(tokenStr, &jwtClaims{}, func(*jwt.Token) (interface{}, error) {
		return a.cfg.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		a.fail(c, errAuth("Invalid or expired token"))
		return
	}
	claims, ok := token.Claims.(*jwtClaims)
	if !ok {
		a.fail(c, errAuth("Invalid or expired token"))
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		a.fail(c, errAuth("Invalid or expired token"))
		return
	}
	c.Set("userId", userID)
	c.Set("email", claims.Email)
	c.Set("role", claims.Role)
	c.Next()
}

func (a *app) adminRequired(c *gin.Context) {
	if c.GetString("role") != "admin" {
		a.fail(c, errForbidden("Admin only"))
		return
	}
	c.Next()
}

func currentUserID(c *gin.Context) primitive.ObjectID {
	id, _ := c.Get("userId")
	oid, _ := id.(primitive.ObjectID)
	return oid
}

// requestLogger tags every request with an id and logs method, path,
// status and latency.
func (a *app) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()
		c.Set("requestId", reqID)
		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Next()
		a.infoLog.Printf("%s %s %s %d %s", reqID[:8], c.Request.Method,
			c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
