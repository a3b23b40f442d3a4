package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tailms-api/internal/middleware"
	"github.com/noah-isme/tailms-api/internal/models"
	"github.com/noah-isme/tailms-api/internal/service"
	appErrors "github.com/noah-isme/tailms-api/pkg/errors"
	"github.com/noah-isme/tailms-api/pkg/response"
)

// requireClaims returns the caller's claims or writes a 401.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims, ok := requireClaims(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role, Meta: requestMeta(c)}, true
}

// bindBody returns the payload validated by middleware.ValidateBody, falling
// back to binding the JSON body directly.
func bindBody[T any](c *gin.Context) (T, bool) {
	if payload, ok := middleware.Body[T](c); ok {
		return payload, true
	}
	var payload T
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid request body"))
		return payload, false
	}
	return payload, true
}
