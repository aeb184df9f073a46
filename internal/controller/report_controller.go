package controller

import (
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Service *service.ReportService
}

func NewReportController(svc *service.ReportService) *ReportController {
	return &ReportController{Service: svc}
}

// @Summary 生成课程完成报告
// @Description 选课完成后生成，重复调用返回同一份报告
// @Tags 报告
// @Produce json
// @Security BearerAuth
// @Param id path int true "选课ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response "课程未完成"
// @Router /api/enrollments/{id}/report [post]
func (c *ReportController) GenerateReport(ctx *gin.Context) {
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

	rep, err := c.Service.GenerateReport(ctx.Request.Context(), id, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rep)
}

// @Summary 获取报告
// @Tags 报告
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} util.Response
// @Router /api/reports/{id} [get]
func (c *ReportController) GetReport(ctx *gin.Context) {
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

	rep, err := c.Service.GetReport(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if rep.StudentID != user.UserID && !user.Role.CanGrade() {
		util.Forbidden(ctx)
		return
	}
	util.Success(ctx, rep)
}

// @Summary 教师端：颁发证书
// @Tags 报告
// @Produce json
// @Security BearerAuth
// @Param id path int true "报告ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "证书已颁发"
// @Failure 422 {object} util.Response "未达到颁发条件"
// @Router /api/teacher/reports/{id}/certificate [post]
func (c *ReportController) IssueCertificate(ctx *gin.Context) {
	id, err := util.ParseID(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	rep, err := c.Service.IssueCertificate(ctx.Request.Context(), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rep)
}
