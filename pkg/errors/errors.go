// Package errors 提供统一的错误定义
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 数据校验错误 (2xxx)
	CodeValidationFailed   ErrorCode = "2001"
	CodeInvalidBatchSize   ErrorCode = "2002"
	CodeMissingReference   ErrorCode = "2003"
	CodeDuplicateEntry     ErrorCode = "2004"
	CodeWordCountMismatch  ErrorCode = "2005"
	CodeContentUnparseable ErrorCode = "2006"

	// 存储错误 (3xxx)
	CodeDatabaseError     ErrorCode = "3001"
	CodeCacheError        ErrorCode = "3002"
	CodeTransactionFailed ErrorCode = "3003"
	CodeStreamError       ErrorCode = "3004"

	// 迁移业务错误 (4xxx)
	CodeMigrationFailed   ErrorCode = "4001"
	CodeMigrationConflict ErrorCode = "4002"
	CodeRunNotFound       ErrorCode = "4003"
	CodeRunActive         ErrorCode = "4004"
	CodePartialWrite      ErrorCode = "4005"
	CodeRollbackFailed    ErrorCode = "4006"
	CodeLockNotAcquired   ErrorCode = "4007"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 返回附加详细信息的错误副本，不修改原错误
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 返回附加底层错误的副本，不修改原错误
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidBatchSize:
		return http.StatusBadRequest
	case CodeNotFound, CodeRunNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeMigrationConflict, CodeRunActive, CodeLockNotAcquired:
		return http.StatusConflict
	case CodeValidationFailed, CodeMissingReference, CodeDuplicateEntry, CodeWordCountMismatch, CodeContentUnparseable:
		return http.StatusUnprocessableEntity
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrValidationFailed = New(CodeValidationFailed, "validation failed")
	ErrInvalidBatchSize = New(CodeInvalidBatchSize, "batch size must be at least 1")

	ErrRunNotFound     = New(CodeRunNotFound, "migration run not found")
	ErrRunActive       = New(CodeRunActive, "a migration run is already active")
	ErrRollbackFailed  = New(CodeRollbackFailed, "rollback failed")
	ErrLockNotAcquired = New(CodeLockNotAcquired, "migration lock is held by another worker")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
