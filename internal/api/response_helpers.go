// internal/api/response_helpers.go
package api

import (
	"net/http"
	"time"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/gin-gonic/gin"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ResponseHelper 响应助手
type ResponseHelper struct {
	metrics *utils.PipelineMetrics
}

// NewResponseHelper 创建响应助手，metrics 可为 nil
func NewResponseHelper(metrics *utils.PipelineMetrics) *ResponseHelper {
	return &ResponseHelper{metrics: metrics}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	if len(message) == 0 {
		message = []string{"resource created"}
	}
	rh.write(c, http.StatusCreated, data, message)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message []string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: c.GetString(requestIDKey),
	})
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message, details...)
}

// Conflict 409错误响应
func (rh *ResponseHelper) Conflict(c *gin.Context, code, message string, details ...string) {
	rh.Error(c, http.StatusConflict, code, message, details...)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// FromError 将 AppError 类型映射为 HTTP 状态码和错误代码
func (rh *ResponseHelper) FromError(c *gin.Context, err error) {
	errType, ok := apperrors.TypeOf(err)
	if !ok {
		errType = apperrors.ErrorTypeError
	}
	status, code := StatusFor(errType)
	// 磁盘数据损坏属于服务端错误，不是请求参数问题
	if apperrors.IsCorruptDataError(err) {
		errType = "corrupt_data"
		status, code = http.StatusInternalServerError, ErrorProjectCorrupt
	}
	if rh.metrics != nil {
		rh.metrics.RecordError(string(errType), "api")
	}
	rh.Error(c, status, code, err.Error())
}

// StatusFor 返回错误类型对应的 HTTP 状态码和错误代码
func StatusFor(errType apperrors.ErrorType) (int, string) {
	switch errType {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest, ErrorProjectInvalid
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound, ErrorProjectNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict, ErrorConflict
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized, ErrorUnauthorized
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden, ErrorForbidden
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout, ErrorTimeout
	case apperrors.ErrorTypeIO:
		return http.StatusInternalServerError, ErrorStorageFailed
	default:
		return http.StatusInternalServerError, ErrorPipelineFailed
	}
}
