package controller

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ClassController struct {
	ClassService *service.ClassService
	AuditService *service.AuditService
}

func NewClassController(classService *service.ClassService, auditService *service.AuditService) *ClassController {
	return &ClassController{ClassService: classService, AuditService: auditService}
}

type ClassRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (c *ClassController) CreateClass(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.ClassService.CreateClass(claims.UserID, &model.Class{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.AuditService.Record(claims.UserID, "class.create", "class", class.ID, class.Name, ctx.ClientIP())
	util.Created(ctx, class)
}

func (c *ClassController) GetClass(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	class, err := c.ClassService.GetClass(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

func (c *ClassController) UpdateClass(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req ClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	class, err := c.ClassService.UpdateClass(id, req.Name, req.Description)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, class)
}

func (c *ClassController) DeleteClass(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.ClassService.DeleteClass(id); err != nil {
		util.RespondError(ctx, err)
		return
	}

	if claims := util.GetUserFromContext(ctx); claims != nil {
		c.AuditService.Record(claims.UserID, "class.delete", "class", id, "", ctx.ClientIP())
	}
	util.Success(ctx, nil)
}

func (c *ClassController) ListClasses(ctx *gin.Context) {
	page, limit := pagination(ctx)

	var instructorID uint
	if claims := util.GetUserFromContext(ctx); claims != nil && claims.Role == model.Instructor {
		instructorID = claims.UserID
	}

	classes, total, err := c.ClassService.ListClasses(instructorID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: classes, Total: total, Page: page, Limit: limit})
}

type EnrollRequest struct {
	StudentID uint `json:"studentId" binding:"required"`
}

func (c *ClassController) Enroll(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req EnrollRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ClassService.Enroll(id, req.StudentID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *ClassController) Unenroll(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	studentID, ok := parseID(ctx, "studentId")
	if !ok {
		return
	}

	if err := c.ClassService.Unenroll(id, studentID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
