package controller

import (
	"edu_portal_backend/internal/assessment"
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

type StartAttemptRequest struct {
	EnrollmentID uint `json:"enrollmentId" binding:"required"`
}

type SaveAnswerRequest struct {
	Answer  string   `json:"answer"`
	Answers []string `json:"answers"`
}

type GradeAnswerRequest struct {
	Correct *bool `json:"correct" binding:"required"`
}

// ownedAttempt 解析路径 id 并校验归属
func (c *AttemptController) ownedAttempt(ctx *gin.Context) (uint, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return 0, false
	}
	if _, err := c.Service.GetOwnedAttempt(ctx.Request.Context(), id, user.UserID); err != nil {
		util.RespondError(ctx, err)
		return 0, false
	}
	return id, true
}

// @Summary 开始测评尝试
// @Tags 测评作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body StartAttemptRequest true "选课信息"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response "选课不属于该课程或已结束"
// @Failure 403 {object} util.Response "不是自己的选课"
// @Failure 404 {object} util.Response "选课不存在"
// @Failure 409 {object} util.Response "次数用尽或已有进行中的尝试"
// @Router /api/assessments/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	var req StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	att, err := c.Service.StartAttempt(ctx.Request.Context(), user.UserID, assessmentID, req.EnrollmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, att)
}

// @Summary 获取进行中的尝试
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/attempts/current [get]
func (c *AttemptController) GetCurrentAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	att, err := c.Service.GetCurrentAttempt(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if att == nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, att)
}

// @Summary 获取尝试详情
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	att, err := c.Service.GetOwnedAttempt(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, att)
}

// @Summary 获取已保存的答案
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers [get]
func (c *AttemptController) ListAnswers(ctx *gin.Context) {
	id, ok := c.ownedAttempt(ctx)
	if !ok {
		return
	}

	answers, err := c.Service.ListAnswers(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, answers)
}

// @Summary 保存单题答案
// @Description 同一题重复提交会覆盖；超过时限后拒绝
// @Tags 测评作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Param questionId path int true "题目ID"
// @Param body body SaveAnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answers/{questionId} [put]
func (c *AttemptController) SaveAnswer(ctx *gin.Context) {
	id, ok := c.ownedAttempt(ctx)
	if !ok {
		return
	}
	questionID, err := util.ParseID(ctx.Param("questionId"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	var req SaveAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.SaveAnswer(ctx.Request.Context(), id, questionID, req.Answer, req.Answers); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 交卷
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	id, ok := c.ownedAttempt(ctx)
	if !ok {
		return
	}

	att, err := c.Service.SubmitAttempt(ctx.Request.Context(), id, assessment.UserInitiated)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, att)
}

// @Summary 放弃尝试
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/abandon [post]
func (c *AttemptController) AbandonAttempt(ctx *gin.Context) {
	id, ok := c.ownedAttempt(ctx)
	if !ok {
		return
	}

	if err := c.Service.AbandonAttempt(ctx.Request.Context(), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 查看作答回顾
// @Tags 测评作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "测评未开放回顾"
// @Router /api/attempts/{id}/review [get]
func (c *AttemptController) Review(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.Service.Review(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// @Summary 教师端：批改简答题
// @Tags 测评作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "尝试ID"
// @Param questionId path int true "题目ID"
// @Param body body GradeAnswerRequest true "批改结果"
// @Success 200 {object} util.Response
// @Router /api/teacher/attempts/{id}/answers/{questionId}/grade [post]
func (c *AttemptController) GradeAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	questionID, err := util.ParseID(ctx.Param("questionId"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	var req GradeAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	att, err := c.Service.GradeShortAnswer(ctx.Request.Context(), id, questionID, *req.Correct, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, att)
}
