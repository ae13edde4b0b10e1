package controller

import (
	"strconv"

	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuditController struct {
	AuditService *service.AuditService
}

func NewAuditController(auditService *service.AuditService) *AuditController {
	return &AuditController{AuditService: auditService}
}

// List returns the administrative audit trail, filterable by actor and entity.
func (c *AuditController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)

	var userID uint
	if raw := ctx.Query("userId"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			util.BadRequest(ctx, "invalid userId")
			return
		}
		userID = uint(parsed)
	}

	entries, total, err := c.AuditService.List(userID, ctx.Query("entity"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: entries, Total: total, Page: page, Limit: limit})
}
