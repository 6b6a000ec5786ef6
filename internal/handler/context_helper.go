package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bookwyrm-admin/internal/middleware"
	"github.com/noah-isme/bookwyrm-admin/internal/models"
	"github.com/noah-isme/bookwyrm-admin/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
