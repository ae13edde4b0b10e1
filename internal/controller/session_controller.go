package controller

import (
	"cbt_backend/internal/model"
	"cbt_backend/internal/service"
	"cbt_backend/internal/util"
	"cbt_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionController struct {
	SessionService  *service.SessionService
	ResultService   *service.ResultService
	GraderService   *service.GraderService
	SecurityService *service.SecurityService
	TestService     *service.TestService
}

func NewSessionController(sessionService *service.SessionService, resultService *service.ResultService, graderService *service.GraderService, securityService *service.SecurityService, testService *service.TestService) *SessionController {
	return &SessionController{
		SessionService:  sessionService,
		ResultService:   resultService,
		GraderService:   graderService,
		SecurityService: securityService,
		TestService:     testService,
	}
}

// StartSession opens a new attempt on a test for the calling student.
func (c *SessionController) StartSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	testID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.StartSession(claims.UserID, testID, ctx.ClientIP(), ctx.Request.UserAgent())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// GetSession returns the running attempt: questions stripped of correctness
// data, saved answers and the countdown.
func (c *SessionController) GetSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	ownerID := claims.UserID
	if claims.Role != model.Student {
		ownerID = 0
	}
	session, err := c.SessionService.GetSession(id, ownerID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	test := session.Test
	if test == nil {
		if test, err = c.TestService.GetTest(session.TestID); err != nil {
			util.RespondError(ctx, err)
			return
		}
	}

	seed := service.SessionSeed(session)
	ordered := service.TakingOrder(test, seed)
	questions := make([]service.StudentQuestionView, len(ordered))
	for i := range ordered {
		questions[i] = service.NewStudentQuestionView(&ordered[i], seed+int64(ordered[i].ID))
	}

	util.Success(ctx, gin.H{
		"session":   session,
		"questions": questions,
		"remaining": c.SessionService.Remaining(session, test),
	})
}

type SaveAnswerRequest struct {
	QuestionID      uint              `json:"questionId" binding:"required"`
	Answer          model.AnswerValue `json:"answer" binding:"required"`
	TimeSpent       int               `json:"timeSpent"`
	MarkedForReview bool              `json:"markedForReview"`
}

func (c *SessionController) SaveAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.SessionService.SaveAnswer(id, claims.UserID, req.QuestionID, req.Answer, req.TimeSpent, req.MarkedForReview)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

type ProgressRequest struct {
	CurrentQuestion int `json:"currentQuestion"`
}

func (c *SessionController) MarkProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.SessionService.MarkProgress(id, claims.UserID, req.CurrentQuestion); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetTimeRemaining is polled by the client countdown.
func (c *SessionController) GetTimeRemaining(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.GetSession(id, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	test := session.Test
	if test == nil {
		if test, err = c.TestService.GetTest(session.TestID); err != nil {
			util.RespondError(ctx, err)
			return
		}
	}
	util.Success(ctx, c.SessionService.Remaining(session, test))
}

// Submit ends the attempt, grades free-text answers and finalizes the
// result in one call. Essay grading trouble downgrades to ungraded answers
// rather than failing the submit.
func (c *SessionController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.Submit(id, claims.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if _, err := c.GraderService.GradeSessionEssays(session.ID); err != nil {
		logger.Log.Warn("essay grading during submit failed",
			zap.Uint("sessionId", session.ID), zap.Error(err))
	}

	result, err := c.ResultService.CalculateResult(session.ID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"session": session, "result": result})
}

// Complete is the instructor-side forced end of an attempt.
func (c *SessionController) Complete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	session, err := c.SessionService.Complete(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	if _, err := c.GraderService.GradeSessionEssays(session.ID); err != nil {
		logger.Log.Warn("essay grading during complete failed",
			zap.Uint("sessionId", session.ID), zap.Error(err))
	}
	result, err := c.ResultService.CalculateResult(session.ID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"session": session, "result": result})
}

type ExtendRequest struct {
	Minutes int `json:"minutes" binding:"required,gt=0"`
}

func (c *SessionController) Extend(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req ExtendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.SessionService.Extend(id, req.Minutes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

func (c *SessionController) ListMySessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	page, limit := pagination(ctx)

	sessions, total, err := c.SessionService.ListStudentSessions(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: sessions, Total: total, Page: page, Limit: limit})
}

type SecurityEventRequest struct {
	Type     string `json:"type" binding:"required"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// ReportEvent accepts a client-side anti-cheating signal. Always 200; the
// client must not learn whether the event was persisted.
func (c *SessionController) ReportEvent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req SecurityEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if _, err := c.SessionService.GetSession(id, claims.UserID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	c.SecurityService.RecordEvent(id, claims.UserID,
		model.SecurityEventType(req.Type), model.EventSeverity(req.Severity), req.Detail)
	util.Success(ctx, nil)
}
