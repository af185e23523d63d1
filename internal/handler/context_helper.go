package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tc-api/internal/middleware"
	"github.com/noah-isme/sma-tc-api/internal/models"
	"github.com/noah-isme/sma-tc-api/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	meta := service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		meta.UserID = claims.UserID
	}
	return meta
}
