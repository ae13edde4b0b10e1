package controller

import (
	"encoding/json"
	"path/filepath"

	"cbt_backend/internal/model"
	"cbt_backend/internal/service"
	"cbt_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuestionController struct {
	QuestionService *service.QuestionService
	StorageService  *service.StorageService
}

func NewQuestionController(questionService *service.QuestionService, storageService *service.StorageService) *QuestionController {
	return &QuestionController{QuestionService: questionService, StorageService: storageService}
}

// QuestionRequest carries the authoring payload. CorrectAnswer accepts a
// JSON string or array of strings, mirroring single and multi-select MCQ.
type QuestionRequest struct {
	Text          string               `json:"text" binding:"required"`
	Type          string               `json:"type" binding:"required"`
	Points        float64              `json:"points" binding:"required,gt=0"`
	Difficulty    string               `json:"difficulty"`
	Section       string               `json:"section"`
	Hint          string               `json:"hint"`
	Explanation   string               `json:"explanation"`
	Options       []string             `json:"options"`
	CorrectAnswer json.RawMessage      `json:"correctAnswer"`
	MatchingPairs []model.MatchingPair `json:"matchingPairs"`
	ImageURL      string               `json:"imageUrl"`
	Rubric        string               `json:"rubric"`
	ModelAnswer   string               `json:"modelAnswer"`
}

func (r *QuestionRequest) toModel() (*model.Question, error) {
	q := &model.Question{
		Text:        r.Text,
		Type:        model.QuestionType(r.Type),
		Points:      r.Points,
		Difficulty:  model.Difficulty(r.Difficulty),
		Section:     r.Section,
		Hint:        r.Hint,
		Explanation: r.Explanation,
		ImageURL:    r.ImageURL,
		Rubric:      r.Rubric,
		ModelAnswer: r.ModelAnswer,
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyMedium
	}
	if len(r.Options) > 0 {
		raw, err := json.Marshal(r.Options)
		if err != nil {
			return nil, err
		}
		q.Options = string(raw)
	}
	if len(r.CorrectAnswer) > 0 {
		q.CorrectAnswer = string(r.CorrectAnswer)
	}
	if len(r.MatchingPairs) > 0 {
		raw, err := json.Marshal(r.MatchingPairs)
		if err != nil {
			return nil, err
		}
		q.MatchingPairs = string(raw)
	}
	return q, nil
}

func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := req.toModel()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	created, err := c.QuestionService.CreateQuestion(claims.UserID, question)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, created)
}

func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	question, err := c.QuestionService.GetQuestion(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, question)
}

func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var req QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := req.toModel()
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	updated, err := c.QuestionService.UpdateQuestion(id, question)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, updated)
}

func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.QuestionService.DeleteQuestion(id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	page, limit := pagination(ctx)
	questions, total, err := c.QuestionService.ListQuestions(
		model.QuestionType(ctx.Query("type")),
		model.Difficulty(ctx.Query("difficulty")),
		ctx.Query("section"),
		ctx.Query("search"),
		page, limit,
	)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: questions, Total: total, Page: page, Limit: limit})
}

func (c *QuestionController) GetVersions(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	versions, err := c.QuestionService.Versions(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, versions)
}

// UploadImage stores a question image and returns its URL for use in
// image-recognition questions.
func (c *QuestionController) UploadImage(ctx *gin.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		util.BadRequest(ctx, "image file is required")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	filename := "questions/" + uuid.New().String() + filepath.Ext(file.Filename)
	url, err := c.StorageService.Upload(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
