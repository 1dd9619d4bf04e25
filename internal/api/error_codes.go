// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorForbidden     = "FORBIDDEN"
	ErrorUnauthorized  = "UNAUTHORIZED"
	ErrorTimeout       = "TIMEOUT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 项目相关错误
	ErrorProjectNotFound = "PROJECT_NOT_FOUND"
	ErrorProjectInvalid  = "PROJECT_INVALID"
	ErrorPreviewNotReady = "PREVIEW_NOT_READY"
	ErrorDestination     = "DESTINATION_INVALID"
	ErrorProjectCorrupt  = "PROJECT_CORRUPT"

	// 流水线与存储错误
	ErrorStorageFailed  = "STORAGE_FAILED"
	ErrorPipelineFailed = "PIPELINE_FAILED"
)
