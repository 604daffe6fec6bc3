package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Envelope codes understood by existing clients.
const (
	codeOK   = 0
	codeFail = -1
)

// Messages are shown verbatim by the web client.
const (
	msgBadRequest         = "请求参数格式错误"
	msgCredentialsEmpty   = "用户名/密码不能为空"
	msgPasswordTooShort   = "密码长度不能少于6位"
	msgPasswordTooLong    = "密码长度不能超过72字节"
	msgUsernameTaken      = "用户名已存在"
	msgRegistered         = "注册成功，请登录"
	msgUsernameNotFound   = "用户名不存在"
	msgWrongPassword      = "密码错误"
	msgLoggedIn           = "登录成功"
	msgNotLoggedIn        = "未登录，请先登录"
	msgTokenInvalid       = "Token过期/无效，请重新登录"
	msgPasswordsEmpty     = "原密码/新密码不能为空"
	msgNewPasswordShort   = "新密码长度不能少于6位"
	msgNewPasswordLong    = "新密码长度不能超过72字节"
	msgUserMissing        = "用户不存在"
	msgWrongOldPassword   = "原密码错误"
	msgPasswordChanged    = "密码修改成功，请重新登录"
	msgFetched            = "获取成功"
	msgGiftFieldsRequired = "姓名和金额不能为空"
	msgInvalidAmount      = "金额格式不正确，最多12位整数和2位小数"
	msgGiftAdded          = "新增成功"
	msgGiftNotFound       = "记录不存在"
	msgGiftForbidden      = "无权限删除该记录"
	msgGiftDeleted        = "删除成功"
	msgNothingToClear     = "暂无记录可清空"
	msgCleared            = "清空成功"
	msgServerErrorPrefix  = "服务器错误："
	msgHealthy            = "ok"
	msgUnhealthy          = "数据库不可用"
)

func success(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"code": codeOK, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": codeFail, "message": message})
}

// serverError reports a storage or signing failure. The error text is passed
// through for diagnostics; nothing that reaches here carries a password hash.
func (h *Handler) serverError(c *gin.Context, err error, op string) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"op":         op,
	}).Error("request failed")
	fail(c, http.StatusInternalServerError, msgServerErrorPrefix+err.Error())
}
