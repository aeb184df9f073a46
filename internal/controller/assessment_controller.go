package controller

import (
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	Service  *service.AssessmentService
	Attempts *service.AttemptService
}

func NewAssessmentController(svc *service.AssessmentService, attempts *service.AttemptService) *AssessmentController {
	return &AssessmentController{Service: svc, Attempts: attempts}
}

// @Summary 教师端：创建测评
// @Description 创建测评及题目，题目答案在创建时校验
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateAssessmentRequest true "测评信息"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/teacher/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Service.CreateAssessment(ctx.Request.Context(), req, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 获取测评详情
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	a, err := c.Attempts.GetAssessment(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 获取测评题目
// @Description 不返回答案；传 attemptId 时按该次尝试的题目顺序返回
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param attemptId query int false "尝试ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/questions [get]
func (c *AssessmentController) GetQuestions(ctx *gin.Context) {
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
	var attemptID uint
	if raw := ctx.Query("attemptId"); raw != "" {
		if attemptID, err = util.ParseID(raw); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	qs, err := c.Attempts.PresentQuestions(ctx.Request.Context(), id, attemptID, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// @Summary 查询作答资格
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/assessments/{id}/eligibility [get]
func (c *AssessmentController) GetEligibility(ctx *gin.Context) {
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

	e, err := c.Attempts.GetEligibility(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, e)
}
