package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务错误码
const (
	CodeVerificationFailed  = 1001
	CodeAmountMismatch      = 1002
	CodeDuplicateReference  = 1003
	CodeInsufficientBalance = 1004
	CodeCreditFailed        = 1005
	CodeInvalidState        = 1006
	CodeAlreadyRefunded     = 1007
	CodeOutOfStock          = 1008
	CodeUnavailable         = 1009
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, http.StatusOK, code, message, nil)
}

// ErrorWithData 业务失败时附带上下文数据，例如金额不符时的期望值与实收值
func ErrorWithData(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func ParamError(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusBadRequest, CodeParamError, message, nil)
}

func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: CodeUnauthorized, Message: message})
}

func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Response{Code: CodeForbidden, Message: message})
}

func NotFound(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func ServerError(c *gin.Context, message string) {
	ErrorWithData(c, http.StatusInternalServerError, CodeServerError, message, nil)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
