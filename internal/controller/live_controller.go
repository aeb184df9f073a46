package controller

import (
	"edu_portal_backend/internal/service"
	"edu_portal_backend/internal/util"
	"edu_portal_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LiveController struct {
	Hub *service.LiveAttemptHub
}

func NewLiveController(hub *service.LiveAttemptHub) *LiveController {
	return &LiveController{Hub: hub}
}

// @Summary 实时作答连接
// @Description WebSocket：服务端计时，超时自动交卷。浏览器可通过 token 查询参数传递 JWT
// @Tags 测评作答
// @Security BearerAuth
// @Param token query string false "JWT"
// @Router /api/attempts/live [get]
func (c *LiveController) Connect(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	// 升级失败时 upgrader 已写回错误响应
	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, user.UserID); err != nil {
		logger.Log.Warn("live attempt upgrade failed", zap.Uint("userId", user.UserID), zap.Error(err))
	}
}
