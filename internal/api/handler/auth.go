package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

var errNoCode = errors.New("token carries no code")

// generateJWT видає токен для коду користувача.
func (h *Handler) generateJWT(code string) (string, error) {
	claims := jwt.MapClaims{
		"code": code,
		"exp":  time.Now().Add(config.TokenTTL).Unix(),
		"iss":  config.TokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Config.JWTSecret))
}

// validateAndGetCode перевіряє підпис і термін дії та повертає код.
func (h *Handler) validateAndGetCode(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(h.Config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errNoCode
	}
	code, _ := claims["code"].(string)
	code = models.NormalizeCode(code)
	if code == "" {
		return "", errNoCode
	}
	return code, nil
}

// IssueToken видає JWT для ?code=, придатний як ?token= у /ws.
func (h *Handler) IssueToken(c *gin.Context) {
	code := models.NormalizeCode(c.Query("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	token, err := h.generateJWT(code)
	if err != nil {
		h.log.Error().Err(err).Str("code", code).Msg("failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "code": code})
}
