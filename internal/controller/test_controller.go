package controller

import (
	"time"

	"cbt_backend/internal/model"
	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService    *service.TestService
	SessionService *service.SessionService
	AuditService   *service.AuditService
}

func NewTestController(testService *service.TestService, sessionService *service.SessionService, auditService *service.AuditService) *TestController {
	return &TestController{
		TestService:    testService,
		SessionService: sessionService,
		AuditService:   auditService,
	}
}

type TestRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	Subject              string    `json:"subject" binding:"required"`
	Duration             int       `json:"duration" binding:"required,gt=0"`
	PassingScore         float64   `json:"passingScore" binding:"required,gt=0,lte=100"`
	MaxAttempts          int       `json:"maxAttempts"`
	GracePeriod          int       `json:"gracePeriod"`
	ShuffleQuestions     bool      `json:"shuffleQuestions"`
	AllowReview          *bool     `json:"allowReview"`
	NegativeMarking      bool      `json:"negativeMarking"`
	NegativeMarkingValue float64   `json:"negativeMarkingValue"`
	StartDate            time.Time `json:"startDate" binding:"required"`
	EndDate              time.Time `json:"endDate" binding:"required"`
}

func (r *TestRequest) toModel() *model.Test {
	test := &model.Test{
		Title:                r.Title,
		Description:          r.Description,
		Subject:              r.Subject,
		Duration:             r.Duration,
		PassingScore:         r.PassingScore,
		MaxAttempts:          r.MaxAttempts,
		GracePeriod:          r.GracePeriod,
		ShuffleQuestions:     r.ShuffleQuestions,
		AllowReview:          true,
		NegativeMarking:      r.NegativeMarking,
		NegativeMarkingValue: r.NegativeMarkingValue,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
	}
	if test.MaxAttempts < 1 {
		test.MaxAttempts = 1
	}
	if r.AllowReview != nil {
		test.AllowReview = *r.AllowReview
	}
	return test
}

func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req TestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(claims.UserID, req.toModel())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.AuditService.Record(claims.UserID, "test.create", "test", test.ID, test.Title, ctx.ClientIP())
	util.Created(ctx, test)
}

func (c *TestController) GetTest(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	test, err := c.TestService.GetTest(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

func (c *TestController) UpdateTest(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req TestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.UpdateTest(id, req.toModel())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

func (c *TestController) DeleteTest(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.TestService.DeleteTest(id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *TestController) ListTests(ctx *gin.Context) {
	page, limit := pagination(ctx)

	var instructorID uint
	if claims := util.GetUserFromContext(ctx); claims != nil && claims.Role == model.Instructor {
		instructorID = claims.UserID
	}

	tests, total, err := c.TestService.ListTests(
		instructorID,
		model.TestStatus(ctx.Query("status")),
		ctx.Query("subject"),
		page, limit,
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: tests, Total: total, Page: page, Limit: limit})
}

type SetQuestionsRequest struct {
	QuestionIDs []uint `json:"questionIds" binding:"required,min=1"`
}

func (c *TestController) SetQuestions(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req SetQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.SetQuestions(id, req.QuestionIDs)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

func (c *TestController) Publish(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	test, err := c.TestService.Publish(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if claims := util.GetUserFromContext(ctx); claims != nil {
		c.AuditService.Record(claims.UserID, "test.publish", "test", id, test.Title, ctx.ClientIP())
	}
	util.Success(ctx, test)
}

func (c *TestController) Archive(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	test, err := c.TestService.Archive(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, test)
}

type AssignClassRequest struct {
	ClassID uint `json:"classId" binding:"required"`
}

func (c *TestController) AssignClass(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req AssignClassRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.TestService.AssignClass(id, req.ClassID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *TestController) UnassignClass(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	classID, ok := parseID(ctx, "classId")
	if !ok {
		return
	}

	if err := c.TestService.UnassignClass(id, classID); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListAvailable returns the published tests the calling student may take,
// with their remaining eligibility.
func (c *TestController) ListAvailable(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := pagination(ctx)

	tests, total, err := c.TestService.ListAvailableForStudent(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	type availableTest struct {
		model.Test
		CanTake bool `json:"canTake"`
	}
	out := make([]availableTest, len(tests))
	for i, test := range tests {
		canTake, err := c.SessionService.CanStudentTakeTest(claims.UserID, test.ID)
		if err != nil {
			canTake = false
		}
		out[i] = availableTest{Test: test, CanTake: canTake}
	}

	util.Success(ctx, util.PageResponse{List: out, Total: total, Page: page, Limit: limit})
}

// ActiveSessions lists open sessions on a test for live monitoring.
func (c *TestController) ActiveSessions(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	sessions, err := c.SessionService.ActiveSessions(id)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, sessions)
}
