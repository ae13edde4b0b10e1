package controller

import (
	"strconv"

	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SecurityController struct {
	SecurityService *service.SecurityService
}

func NewSecurityController(securityService *service.SecurityService) *SecurityController {
	return &SecurityController{SecurityService: securityService}
}

func (c *SecurityController) SessionEvents(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	events, err := c.SecurityService.SessionEvents(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, events)
}

func (c *SecurityController) TestEvents(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	unresolvedOnly, _ := strconv.ParseBool(ctx.DefaultQuery("unresolved", "false"))

	events, total, err := c.SecurityService.TestEvents(id, unresolvedOnly, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: events, Total: total, Page: page, Limit: limit})
}

type ResolveEventRequest struct {
	Notes string `json:"notes"`
}

func (c *SecurityController) ResolveEvent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req ResolveEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	event, err := c.SecurityService.Resolve(id, claims.UserID, req.Notes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, event)
}
