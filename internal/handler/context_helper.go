package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/konversi-api/internal/middleware"
	"github.com/noah-isme/konversi-api/internal/models"
	"github.com/noah-isme/konversi-api/internal/workflow"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromClaims(claims *models.JWTClaims) workflow.Actor {
	return workflow.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		ProgramID: claims.ProgramID,
	}
}

func paginationFromQuery(c *gin.Context) models.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	return models.Pagination{Page: page, PageSize: size}
}
