package controller

import (
	"fmt"

	"cbt_backend/internal/model"
	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService *service.ResultService
	AuditService  *service.AuditService
}

func NewResultController(resultService *service.ResultService, auditService *service.AuditService) *ResultController {
	return &ResultController{ResultService: resultService, AuditService: auditService}
}

// GetResult scopes student access to their own published results.
func (c *ResultController) GetResult(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.ResultService.GetResult(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if claims.Role == model.Student {
		if result.StudentID != claims.UserID {
			util.NotFound(ctx)
			return
		}
		if !result.IsPublished {
			util.Forbidden(ctx)
			return
		}
	}
	util.Success(ctx, result)
}

func (c *ResultController) GetComparison(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	comparison, err := c.ResultService.Comparison(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, comparison)
}

func (c *ResultController) ListMyResults(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := pagination(ctx)

	results, total, err := c.ResultService.ListByStudent(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	// Students only see published outcomes.
	published := results[:0]
	for _, r := range results {
		if r.IsPublished {
			published = append(published, r)
		}
	}
	util.Success(ctx, util.PageResponse{List: published, Total: total, Page: page, Limit: limit})
}

// GetMyPerformance returns the calling student's cross-test summary and
// improvement trend.
func (c *ResultController) GetMyPerformance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	perf, err := c.ResultService.Performance(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, perf)
}

// GetStudentPerformance is the instructor-side view of any student's history.
func (c *ResultController) GetStudentPerformance(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	perf, err := c.ResultService.Performance(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, perf)
}

func (c *ResultController) ListByTest(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, limit := pagination(ctx)

	results, total, err := c.ResultService.ListByTest(id, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: results, Total: total, Page: page, Limit: limit})
}

func (c *ResultController) GetStatistics(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	stats, err := c.ResultService.Statistics(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

type FeedbackRequest struct {
	Feedback string `json:"feedback" binding:"required"`
}

func (c *ResultController) AddFeedback(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ResultService.AddFeedback(id, claims.UserID, req.Feedback)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *ResultController) Publish(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.ResultService.Publish(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if claims := util.GetUserFromContext(ctx); claims != nil {
		c.AuditService.Record(claims.UserID, "result.publish", "result", id, "", ctx.ClientIP())
	}
	util.Success(ctx, result)
}

// ExportCSV streams a test's results as a CSV download.
func (c *ResultController) ExportCSV(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	out, err := c.ResultService.ExportCSV(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	filename := fmt.Sprintf("test-%d-results.csv", id)
	ctx.Header("Content-Disposition", "attachment; filename="+filename)
	ctx.Data(200, "text/csv", out)
}
